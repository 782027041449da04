package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"shotbridge/internal/config"
	"shotbridge/internal/connection"
	"shotbridge/internal/layout"
	"shotbridge/internal/reconcile"
	"shotbridge/internal/tracking"
)

type reconcileReport struct {
	Project tracking.Ref      `json:"project"`
	DryRun  bool              `json:"dry_run"`
	Summary reconcile.Summary `json:"summary"`
	Entries []reconcile.Entry `json:"entries"`
	Error   string            `json:"error,omitempty"`
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var (
		project   string
		dryRun    bool
		nameMatch string
		conform   bool
		taskTypes []string
		status    string
		parentID  string
		assign    bool

		thumbnails, versions bool
		thumbDir, videoDir   string
	)

	cmd := &cobra.Command{
		Use:   "reconcile <layout>",
		Short: "Create the sequences, shots and tasks of a layout file",
		Long: "Read a TOML, JSON or CSV layout of {sequence, shot, tasks, status, description}\n" +
			"rows and get-or-create the matching hierarchy under the project. Existing\n" +
			"entities are reused, never modified. --thumbnails and --versions also attach\n" +
			"each shot's exported poster frame and review movie found under the media dirs.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lay, err := layout.Load(args[0])
			if err != nil {
				return err
			}
			projectRef := firstNonEmpty(strings.TrimSpace(project), lay.Project)
			if projectRef == "" {
				return errors.New("no project: pass --project or set project in the layout")
			}

			opts := reconcile.OptionsFromConfig(cfg)
			opts.DryRun = dryRun
			opts.Logger = ctx.loggerValue()
			if cmd.Flags().Changed("name-match") {
				opts.NameMatch = nameMatch
			}
			if cmd.Flags().Changed("conform") {
				opts.ConformTask = conform
			}
			if len(taskTypes) > 0 {
				opts.TaskTypes = opts.TaskTypes[:0]
				for _, t := range taskTypes {
					opts.TaskTypes = append(opts.TaskTypes, layout.CanonicalTaskType(t))
				}
			}
			if strings.TrimSpace(status) != "" {
				opts.DefaultStatus = status
			}
			if cmd.Flags().Changed("assign") {
				opts.AssignUser = assign
			}
			opts.ParentID = strings.TrimSpace(parentID)
			if thumbnails || cmd.Flags().Changed("thumbnail-dir") {
				if opts.ThumbnailDir, err = config.ExpandPath(firstNonEmpty(thumbDir, cfg.Media.ThumbnailDir)); err != nil {
					return err
				}
			}
			if versions || cmd.Flags().Changed("video-dir") {
				if opts.VideoDir, err = config.ExpandPath(firstNonEmpty(videoDir, cfg.Media.VideoDir)); err != nil {
					return err
				}
			}
			errOut := cmd.ErrOrStderr()
			showProgress := !ctx.jsonOutput() && shouldColorize(errOut)
			if showProgress {
				opts.Progress = func(current, total int, sequence, shot string) {
					fmt.Fprintf(errOut, "\r\033[K[%d/%d] %s/%s", current, total, sequence, shot)
				}
			}

			var manifest *reconcile.Manifest
			runErr := ctx.withConnection(cmd, func(runCtx context.Context, conn *connection.Connection) error {
				opts.Username = conn.Username()
				r, err := reconcile.New(opts)
				if err != nil {
					return err
				}
				manifest, err = r.Reconcile(runCtx, conn, projectRef, lay.Sequences())
				return err
			})
			if showProgress {
				fmt.Fprintln(errOut)
			}
			if manifest == nil {
				return runErr
			}

			report := reconcileReport{
				Project: manifest.Project(),
				DryRun:  manifest.DryRun(),
				Summary: manifest.Summary(),
				Entries: manifest.Entries(),
			}
			if runErr != nil {
				report.Error = runErr.Error()
			}
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printManifest(cmd.OutOrStdout(), report)
			}

			if runErr != nil {
				return runErr
			}
			if report.Summary.Failed > 0 {
				return fmt.Errorf("%d of %d entities failed", report.Summary.Failed, report.Summary.Total())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project id, name or full name (overrides the layout)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be created without creating anything")
	cmd.Flags().StringVar(&nameMatch, "name-match", "", "Name matching: exact, casefold, trim, trim_casefold")
	cmd.Flags().BoolVar(&conform, "conform", false, "Add a conform task to every shot")
	cmd.Flags().StringSliceVarP(&taskTypes, "task-type", "t", nil, "Task types for shots that list none (repeatable)")
	cmd.Flags().StringVar(&status, "status", "", "Initial task status for shots that set none")
	cmd.Flags().StringVar(&parentID, "parent", "", "Existing Folder or Sequence id to reconcile under")
	cmd.Flags().BoolVar(&assign, "assign", false, "Assign yourself to created tasks and the conform task")
	cmd.Flags().BoolVar(&thumbnails, "thumbnails", false, "Upload each shot's poster frame from media.thumbnail_dir")
	cmd.Flags().BoolVar(&versions, "versions", false, "Publish each shot's movie from media.video_dir")
	cmd.Flags().StringVar(&thumbDir, "thumbnail-dir", "", "Search this directory for poster frames (implies --thumbnails)")
	cmd.Flags().StringVar(&videoDir, "video-dir", "", "Search this directory for movies (implies --versions)")
	return cmd
}

func printManifest(out io.Writer, report reconcileReport) {
	if len(report.Entries) > 0 {
		rows := make([][]string, 0, len(report.Entries))
		for _, entry := range report.Entries {
			rows = append(rows, []string{
				string(entry.Node.Kind),
				entry.Node.Path,
				string(entry.Outcome),
				entry.Reason,
			})
		}
		fmt.Fprintln(out, renderTable(out, tableSpec{
			Headers:  []string{"Kind", "Path", "Outcome", "Reason"},
			Rows:     rows,
			Colorize: outcomeColors,
		}))
	}

	s := report.Summary
	prefix := ""
	if report.DryRun {
		prefix = "Dry run: "
	}
	fmt.Fprintf(out, "%sproject %s: %d created, %d already existed, %d failed, %d planned\n",
		prefix, report.Project.ID, s.Created, s.Existed, s.Failed, s.Planned)
}

func outcomeColors(column int, value string) text.Colors {
	if column != 2 {
		return nil
	}
	switch reconcile.Outcome(value) {
	case reconcile.OutcomeCreated:
		return text.Colors{text.FgGreen}
	case reconcile.OutcomeFailed:
		return text.Colors{text.FgRed, text.Bold}
	case reconcile.OutcomePlanned:
		return text.Colors{text.FgCyan}
	default:
		return nil
	}
}
