package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"clipboard-history/internal/client"
	"clipboard-history/internal/picker"
	"clipboard-history/pkg/types"
)

func newListCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List history entries, newest first",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind := types.Kind(v.GetString("kind"))
			if kind != "" && !kind.Valid() {
				return fmt.Errorf("unknown kind %q", kind)
			}
			views, err := newClient(v).List(cmd.Context(), client.ListOptions{
				Limit: v.GetInt("limit"),
				All:   v.GetBool("all"),
				Query: v.GetString("query"),
				Kind:  kind,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if v.GetBool("json") {
				return writeJSON(out, views)
			}
			if len(views) == 0 {
				fmt.Fprintln(out, "No entries")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKind\tSize\tCreated\tPreview")
			for _, e := range views {
				fmt.Fprintf(w, "%s\t%s\t%.1f KB\t%s\t%s\n",
					e.ID,
					e.Kind,
					e.SizeKB,
					e.CreatedAt.Local().Format(time.DateTime),
					picker.Preview(e, 60),
				)
			}
			return w.Flush()
		},
	}

	f := cmd.Flags()
	f.IntP("limit", "n", 0, "maximum entries to show (default: daemon display limit)")
	f.Bool("all", false, "show every entry")
	f.StringP("query", "q", "", "only text entries containing this (case-insensitive)")
	f.String("kind", "", "only entries of this kind: text|image")
	f.Bool("json", false, "output raw JSON")
	addClientFlags(cmd)

	return cmd
}

func newCopyCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "copy <id>",
		Short:   "Put a history entry back on the clipboard",
		Long:    `Writes the entry to the system clipboard and moves it to the top of the history.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newClient(v).Copy(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied %s (%s, %.1f KB)\n", e.ID, e.Kind, e.SizeKB)
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

func newDeleteCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete history entries",
		Args:    cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(v)
			for _, id := range args {
				if err := c.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			}
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

func newClearCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "clear",
		Short:   "Delete every history entry",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !v.GetBool("yes") && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Clear the whole clipboard history?") {
				fmt.Fprintln(cmd.OutOrStdout(), "aborted")
				return nil
			}
			if err := newClient(v).Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	addClientFlags(cmd)
	return cmd
}

func newReloadCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "reload",
		Short:   "Make the daemon re-read its history from the database",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := newClient(v).Reload(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d entries\n", n)
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

func newStatsCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "stats",
		Short:   "Show history and database statistics",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := newClient(v).Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if v.GetBool("json") {
				return writeJSON(out, stats)
			}

			displayLimit := "all"
			if stats.DisplayLimit > 0 {
				displayLimit = fmt.Sprint(stats.DisplayLimit)
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Entries:\t%d / %d\n", stats.Entries, stats.MaxEntries)
			fmt.Fprintf(w, "Stored rows:\t%d\n", stats.Count)
			fmt.Fprintf(w, "Total size:\t%.1f KB\n", stats.TotalKB)
			fmt.Fprintf(w, "Database:\t%s\n", stats.Path)
			fmt.Fprintf(w, "Database size:\t%.1f KB\n", float64(stats.SizeBytes)/1024)
			fmt.Fprintf(w, "Display limit:\t%s\n", displayLimit)
			fmt.Fprintf(w, "Launch at login:\t%t\n", stats.LaunchAtLogin)
			return w.Flush()
		},
	}
	cmd.Flags().Bool("json", false, "output raw JSON")
	addClientFlags(cmd)
	return cmd
}

func newPickCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "pick",
		Short:   "Browse the history interactively and copy an entry",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := newClient(v)
			if err := c.Ping(cmd.Context()); err != nil {
				return err
			}

			p, err := picker.New(c, nil, v.GetInt("limit"))
			if err != nil {
				return err
			}
			e, ok, err := p.Run(cmd.Context())
			if err != nil || !ok {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied %s\n", picker.Preview(e, 60))
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 0, "maximum entries to show (default: daemon display limit)")
	addClientFlags(cmd)
	return cmd
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
