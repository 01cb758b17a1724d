package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/edgebar/internal/config"
)

var (
	configPath     string
	printDefaults  bool
	showConfigSrcs bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := loadConfig()
		if err != nil {
			return err
		}
		for _, w := range res.Config.Warnings() {
			warnColor.Print("warning: ")
			fmt.Println(w)
		}
		successColor.Println("config: ok")
		return nil
	},
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if printDefaults {
			return printYAML(config.DefaultConfig())
		}
		res, err := loadConfig()
		if err != nil {
			return err
		}
		if showConfigSrcs {
			for _, f := range res.Files {
				fmt.Printf("# loaded: %s\n", f)
			}
		}
		return printYAML(res.Config)
	},
}

var configExplainCmd = &cobra.Command{
	Use:   "explain <yaml.path>",
	Short: "Explain where a config value comes from",
	Example: `  edgebar config explain log_level
  edgebar config explain bars.0.height`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := loadConfig()
		if err != nil {
			return err
		}
		value, src, err := config.Explain(res, args[0])
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			return err
		}
		printField("path", args[0])
		printField("source", formatSource(src))
		keyColor.Println("value:")
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	configCmd.PersistentFlags().StringVar(&configPath, "path", "", "Config file path (default: ~/.config/edgebar/config.yaml)")
	configPrintCmd.Flags().BoolVar(&printDefaults, "defaults", false, "Print built-in defaults (no files)")
	configPrintCmd.Flags().BoolVar(&showConfigSrcs, "files", false, "List loaded files as comments")

	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configPrintCmd)
	configCmd.AddCommand(configExplainCmd)
}

func loadConfig() (*config.LoadResult, error) {
	if configPath == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(configPath)
}

func printYAML(v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceBuiltin:
		if src.Name != "" {
			return "builtin:" + src.Name
		}
		return "builtin"
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}
