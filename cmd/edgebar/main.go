package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/1broseidon/edgebar/internal/ipc"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

var (
	socketPath string
	jsonOutput bool
	noColor    bool

	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow)
	keyColor     = color.New(color.FgCyan)
)

var rootCmd = &cobra.Command{
	Use:   "edgebar",
	Short: "Edge bars that follow the display topology",
	Long: `edgebar keeps a set of bars docked to the screen edges of every display.

The daemon reconciles bar windows whenever displays are plugged, unplugged,
rearranged or rescaled, and reserves screen space through the window manager
(or publishes the work area itself when running as the shell).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		color.NoColor = noColor || !term.IsTerminal(int(os.Stdout.Fd()))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "Daemon socket path (default: $XDG_RUNTIME_DIR/edgebar.sock)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of text")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(displaysCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(err.Error())
		os.Exit(1)
	}
}

func newClient() *ipc.Client {
	if socketPath != "" {
		return ipc.NewClientAt(socketPath)
	}
	return ipc.NewClient()
}

func printJSON(data any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printError(msg string) {
	errorColor.Fprint(os.Stderr, "error: ")
	fmt.Fprintln(os.Stderr, msg)
}

func printField(key string, value any) {
	keyColor.Printf("%-18s", key+":")
	fmt.Println(value)
}
