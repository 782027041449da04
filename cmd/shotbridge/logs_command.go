package main

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shotbridge/internal/logging"
	"shotbridge/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines     int
		follow    bool
		level     string
		component string
		session   string
		raw       bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent entries from the shotbridge log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			minLevel, err := logs.ParseLevel(level)
			if err != nil {
				return fmt.Errorf("--level: %w", err)
			}
			filter := logs.Filter{MinLevel: minLevel, Component: component, SessionID: session}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			out := cmd.OutOrStdout()

			emit := func(line string) {
				rec, ok := logs.Parse(line)
				if !ok {
					if filter == (logs.Filter{MinLevel: minLevel}) {
						fmt.Fprintln(out, line)
					}
					return
				}
				if !filter.Match(rec) {
					return
				}
				if raw {
					fmt.Fprintln(out, line)
					return
				}
				fmt.Fprintln(out, formatRecord(rec))
			}

			tail, offset, err := logs.Tail(path, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				emit(line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, 0, emit)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to read")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries until interrupted")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&component, "component", "", "Only entries from this component (reconcile, attach, connection, ...)")
	cmd.Flags().StringVar(&session, "session", "", "Only entries for this session id (prefix)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print matching JSON lines unchanged")
	return cmd
}

func formatRecord(rec logs.Record) string {
	var b strings.Builder
	if !rec.Time.IsZero() {
		b.WriteString(rec.Time.Local().Format(time.DateTime))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(rec.Level.String()))
	if rec.Component != "" {
		fmt.Fprintf(&b, " [%s]", rec.Component)
	}
	b.WriteByte(' ')
	b.WriteString(rec.Message)
	writeAttrs(&b, rec.Attrs)
	return b.String()
}

func writeAttrs(w io.Writer, attrs map[string]any) {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		fmt.Fprintf(w, " %s=%v", key, attrs[key])
	}
}
