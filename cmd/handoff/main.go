// handoff: typed clipboard and drag-and-drop exchange between views,
// processes and hosts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/handoff/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "handoff",
		Short: "Typed clipboard and drag-and-drop exchange",
		Long: `handoff moves typed content (text/plain, image/png, ...) between views
through an offer/accept negotiation. Content stays with the view that
published it until a paster accepts one of the offered types.

Run "handoff serve" to share the general and drag-and-drop channels with
other processes and hosts over gRPC and HTTP. Use "handoff copy/paste/status"
as CLI tools against a running server. "handoff demo" replays the local
copy-then-paste sequence without any server.

Config file search order (first found wins):
  /etc/handoff/handoff.toml
  $HOME/.config/handoff/handoff.toml
  path supplied via --config

All flags can be set via HANDOFF_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newCopyCmd(),
		newPasteCmd(),
		newStatusCmd(),
		newDemoCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "handoff %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	logging.Setup(format, level)
}
