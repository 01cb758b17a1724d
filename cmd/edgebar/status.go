package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/1broseidon/edgebar/internal/ipc"
)

var historyLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := newClient().GetStatus()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(status)
		}

		printField("version", status.Version)
		printField("uptime", (time.Duration(status.UptimeSeconds) * time.Second).String())
		printField("shell", status.IsShell)
		printField("displays", status.DisplayCount)
		printField("passes", status.Passes)
		if !status.LastPass.IsZero() {
			printField("last_pass", status.LastPass.Local().Format(time.DateTime))
		}
		switch {
		case status.ShuttingDown:
			printField("state", warnColor.Sprint("shutting down"))
		case status.SettingDisplays:
			printField("state", warnColor.Sprint("reconciling"))
		case status.Pending > 0:
			printField("state", warnColor.Sprintf("%d pending", status.Pending))
		default:
			printField("state", successColor.Sprint("idle"))
		}

		if len(status.Bars) > 0 {
			keyColor.Println("\nbars:")
			for _, b := range status.Bars {
				fmt.Printf("  %-10s %-10s 0x%07x  dock=%s%s\n", b.Service, b.Display, b.Window, b.Dock, topmostSuffix(b.Topmost))
			}
		}
		return nil
	},
}

var displaysCmd = &cobra.Command{
	Use:   "displays",
	Short: "List displays from the last reconciliation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := newClient().GetDisplays()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(data)
		}
		for _, d := range data.Displays {
			name := d.Name
			if d.Primary {
				name = successColor.Sprint(name + "*")
			}
			fmt.Printf("%-12s %dx%d%+d%+d  work %dx%d%+d%+d  scale %.2g\n",
				name, d.Width, d.Height, d.X, d.Y,
				d.WorkArea[2], d.WorkArea[3], d.WorkArea[0], d.WorkArea[1], d.Scale)
		}
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force a display reconciliation pass",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ran, err := newClient().Refresh()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]bool{"ran": ran})
		}
		if ran {
			successColor.Println("display pass completed")
		} else {
			warnColor.Println("a pass was already running; refresh queued")
		}
		return nil
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Ask the daemon to reload its configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().Reload(); err != nil {
			return err
		}
		successColor.Println("config reloaded")
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent reconciliation passes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := newClient().GetHistory(historyLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(data)
		}
		if len(data.Passes) == 0 {
			fmt.Println("no passes recorded")
			return nil
		}
		for _, p := range data.Passes {
			fmt.Printf("%s  %-15s %s  %8s%s\n",
				p.Started.Local().Format(time.DateTime),
				p.Reason,
				outcomeLabel(p),
				p.Duration,
				changeSummary(p),
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", ipc.DefaultHistoryLimit, "Number of passes to show")
}

func topmostSuffix(topmost bool) string {
	if topmost {
		return ""
	}
	return warnColor.Sprint("  (below fullscreen)")
}

func outcomeLabel(p ipc.PassInfo) string {
	label := fmt.Sprintf("%-11s", p.Outcome)
	switch p.Outcome {
	case "applied":
		return successColor.Sprint(label)
	case "aborted", "read-failed", "panicked":
		return errorColor.Sprint(label)
	case "skipped":
		return warnColor.Sprint(label)
	}
	return label
}

func changeSummary(p ipc.PassInfo) string {
	var parts []string
	if len(p.Added) > 0 {
		parts = append(parts, "+"+strings.Join(p.Added, ",+"))
	}
	if len(p.Removed) > 0 {
		parts = append(parts, "-"+strings.Join(p.Removed, ",-"))
	}
	if p.Error != "" {
		parts = append(parts, p.Error)
	}
	if len(parts) == 0 {
		return ""
	}
	return "  " + strings.Join(parts, " ")
}
