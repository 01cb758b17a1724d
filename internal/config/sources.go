package config

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

// nodeSources maps every YAML path in doc to its position. Sequence items are
// addressed by index: bars.0.height.
func nodeSources(doc *yaml.Node, file string) map[string]Source {
	out := make(map[string]Source)
	if doc == nil {
		return out
	}
	root := doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return out
		}
		root = root.Content[0]
	}
	w := sourceWalker{file: file, out: out}
	w.walk(root, "")
	return out
}

type sourceWalker struct {
	file string
	out  map[string]Source
}

func (w sourceWalker) walk(node *yaml.Node, prefix string) {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			w.visit(node.Content[i+1], join(prefix, node.Content[i].Value))
		}
	case yaml.SequenceNode:
		for i, item := range node.Content {
			w.visit(item, join(prefix, strconv.Itoa(i)))
		}
	}
}

func (w sourceWalker) visit(node *yaml.Node, path string) {
	w.out[path] = Source{Kind: SourceFile, File: w.file, Line: node.Line, Column: node.Column}
	w.walk(node, path)
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
