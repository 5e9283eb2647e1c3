// clipboard-history: bounded, deduplicated clipboard history daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "clipboard-history",
		Short: "Clipboard history daemon",
		Long: `clipboard-history watches the system clipboard, keeps the most recent
text and image entries (deduplicated, newest first) in a local SQLite database,
and lets you copy an old entry back or delete it.

Run "clipboard-history daemon" once per login session. The other commands talk
to the daemon over its local HTTP API.

Config file search order (first found wins):
  /etc/clipboard-history/clipboard-history.toml
  $HOME/.config/clipboard-history/clipboard-history.toml
  path supplied via --config

All flags can be set via CLIPHIST_<FLAG> env vars (dashes become underscores)
or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newDaemonCmd(),
		newListCmd(),
		newCopyCmd(),
		newDeleteCmd(),
		newClearCmd(),
		newReloadCmd(),
		newStatsCmd(),
		newPickCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clipboard-history %s\n", Version)
		},
	}
}
