package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shotbridge/internal/attach"
	"shotbridge/internal/config"
	"shotbridge/internal/connection"
	"shotbridge/internal/tracking"
)

func newAttachCommand(ctx *commandContext) *cobra.Command {
	attachCmd := &cobra.Command{
		Use:   "attach",
		Short: "Attach thumbnails, versions, notes, time logs and assignments to entities",
	}

	attachCmd.AddCommand(newAttachThumbnailCommand(ctx))
	attachCmd.AddCommand(newAttachVersionCommand(ctx))
	attachCmd.AddCommand(newAttachNoteCommand(ctx))
	attachCmd.AddCommand(newAttachTimelogCommand(ctx))
	attachCmd.AddCommand(newAttachListCommand(ctx, "notes", "List notes on an entity"))
	attachCmd.AddCommand(newAttachTimelogsCommand(ctx))
	attachCmd.AddCommand(newAttachListCommand(ctx, "versions", "List versions of a shot or task"))
	attachCmd.AddCommand(newAttachAssignCommand(ctx))
	attachCmd.AddCommand(newAttachMyTasksCommand(ctx))

	return attachCmd
}

// withAttacher connects and runs fn with an Attacher authored by the
// connected user.
func (c *commandContext) withAttacher(cmd *cobra.Command, fn func(context.Context, *attach.Attacher) error) error {
	return c.withConnection(cmd, func(runCtx context.Context, conn *connection.Connection) error {
		attacher := attach.New(conn, attach.Options{
			Username: conn.Username(),
			Logger:   c.loggerValue(),
		})
		return fn(runCtx, attacher)
	})
}

// mediaPath returns explicit when set, otherwise searches dir for media named
// after the entity (or the --shot override).
func mediaPath(ctx context.Context, a *attach.Attacher, ref tracking.Ref, explicit, shot, dir string, find func(dir, shot string) (string, bool)) (string, error) {
	if explicit != "" {
		return config.ExpandPath(explicit)
	}
	name := strings.TrimSpace(shot)
	if name == "" {
		entity, err := a.Resolve(ctx, ref)
		if err != nil {
			return "", err
		}
		name = entity.Name()
	}
	found, ok := find(dir, name)
	if !ok {
		return "", tracking.Wrap(tracking.ErrNotFound, ref.Type, "discover", fmt.Sprintf("no media for %q under %s", name, dir), nil)
	}
	return found, nil
}

func newAttachThumbnailCommand(ctx *commandContext) *cobra.Command {
	var entityType, shot string

	cmd := &cobra.Command{
		Use:   "thumbnail <entity-id> [image]",
		Short: "Upload an image and set it as the entity thumbnail",
		Long: "Upload an image and set it as the entity thumbnail. Without an image\n" +
			"argument the media.thumbnail_dir tree is searched for <shot>.jpg variants.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			ref := tracking.Ref{Type: entityType, ID: args[0]}
			var result attach.ThumbnailResult
			err := ctx.withAttacher(cmd, func(runCtx context.Context, a *attach.Attacher) error {
				path, err := mediaPath(runCtx, a, ref, optionalArg(args, 1), shot, cfg.Media.ThumbnailDir, attach.FindThumbnail)
				if err != nil {
					return err
				}
				result, err = a.Thumbnail(runCtx, ref, path)
				return err
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Thumbnail %s (%s) set on %s\n", result.ComponentID, result.MIME, result.Entity)
			return nil
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "", "Entity type (Shot, Task, Sequence, ...); detected when empty")
	cmd.Flags().StringVar(&shot, "shot", "", "Shot name used to discover the image")
	return cmd
}

func newAttachVersionCommand(ctx *commandContext) *cobra.Command {
	var entityType, shot, comment string

	cmd := &cobra.Command{
		Use:   "version <shot-id> [movie]",
		Short: "Publish a movie as a new review version of the shot",
		Long: "Publish a movie as a new AssetVersion of the shot and request web review\n" +
			"encoding. Without a movie argument the media.video_dir tree is searched for\n" +
			"<shot>.mov or <shot>.mp4 variants.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			ref := tracking.Ref{Type: entityType, ID: args[0]}
			if ref.Type == "" {
				ref.Type = tracking.TypeShot
			}
			var result attach.VersionResult
			err := ctx.withAttacher(cmd, func(runCtx context.Context, a *attach.Attacher) error {
				path, err := mediaPath(runCtx, a, ref, optionalArg(args, 1), shot, cfg.Media.VideoDir, attach.FindVideo)
				if err != nil {
					return err
				}
				result, err = a.Version(runCtx, ref, path, comment)
				return err
			})
			if ctx.jsonOutput() && result.VersionID != "" {
				if werr := writeJSON(cmd, result); werr != nil {
					return werr
				}
			} else if result.VersionID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Published version %d (%s) on %s\n", result.Version, result.VersionID, result.Shot)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&entityType, "type", tracking.TypeShot, "Entity type of the version context")
	cmd.Flags().StringVar(&shot, "shot", "", "Shot name used to discover the movie")
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Version comment, also posted as a note")
	return cmd
}

func newAttachNoteCommand(ctx *commandContext) *cobra.Command {
	var entityType, category string

	cmd := &cobra.Command{
		Use:   "note <entity-id> <content...>",
		Short: "Post a note authored by the connected user",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := tracking.Ref{Type: entityType, ID: args[0]}
			content := strings.Join(args[1:], " ")
			var note tracking.Entity
			err := ctx.withAttacher(cmd, func(runCtx context.Context, a *attach.Attacher) error {
				var err error
				note, err = a.Note(runCtx, ref, content, category)
				return err
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, note)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note %s posted on %s\n", note.ID, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "", "Entity type; detected when empty")
	cmd.Flags().StringVar(&category, "category", "", "Note category name")
	return cmd
}

func newAttachTimelogCommand(ctx *commandContext) *cobra.Command {
	var duration time.Duration
	var start, comment string

	cmd := &cobra.Command{
		Use:   "timelog <task-id>",
		Short: "Record time spent on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var startAt time.Time
			if strings.TrimSpace(start) != "" {
				parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(start))
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
				startAt = parsed
			}
			var timelog tracking.Entity
			err := ctx.withAttacher(cmd, func(runCtx context.Context, a *attach.Attacher) error {
				var err error
				timelog, err = a.Timelog(runCtx, tracking.Ref{Type: tracking.TypeTask, ID: args[0]}, duration, startAt, comment)
				return err
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, timelog)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %s on task %s (%s)\n", duration, args[0], timelog.ID)
			return nil
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Time spent, e.g. 1h30m")
	cmd.Flags().StringVar(&start, "start", "", "Start time in RFC 3339 (default now)")
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Comment")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

func newAttachListCommand(ctx *commandContext, kind, short string) *cobra.Command {
	var entityType string

	cmd := &cobra.Command{
		Use:   kind + " <entity-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := tracking.Ref{Type: entityType, ID: args[0]}
			var items []tracking.Entity
			err := ctx.withAttacher(cmd, func(runCtx context.Context, a *attach.Attacher) error {
				var err error
				if kind == "notes" {
					items, err = a.Notes(runCtx, ref)
				} else {
					items, err = a.Versions(runCtx, ref)
				}
				return err
			})
			if err != nil {
				return err
			}
			return writeAttachments(cmd, ctx, kind, items)
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "", "Entity type; detected when empty")
	return cmd
}

func newAttachTimelogsCommand(ctx *commandContext) *cobra.Command {
	var today bool

	cmd := &cobra.Command{
		Use:   "timelogs [task-id]",
		Short: "List time logs of a task, or your time logged today",
		Long: "List the time logs of a task. With --today only the connected user's logs\n" +
			"since local midnight are listed, across all tasks unless a task id is given.",
		Args: cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := optionalArg(args, 0)
			if taskID == "" && !today {
				return fmt.Errorf("a task id is required unless --today is set")
			}
			ref := tracking.Ref{Type: tracking.TypeTask, ID: taskID}
			var items []tracking.Entity
			err := ctx.withAttacher(cmd, func(runCtx context.Context, a *attach.Attacher) error {
				var err error
				if today {
					items, err = a.TimelogsToday(runCtx, ref)
				} else {
					items, err = a.Timelogs(runCtx, ref)
				}
				return err
			})
			if err != nil {
				return err
			}
			return writeAttachments(cmd, ctx, "timelogs", items)
		},
	}

	cmd.Flags().BoolVar(&today, "today", false, "Only your time logs since local midnight")
	return cmd
}

func newAttachAssignCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <task-id>",
		Short: "Assign the connected user to a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result attach.Assignment
			err := ctx.withAttacher(cmd, func(runCtx context.Context, a *attach.Attacher) error {
				var err error
				result, err = a.Assign(runCtx, tracking.Ref{Type: tracking.TypeTask, ID: args[0]})
				return err
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			verb := "Assigned to"
			if !result.Created {
				verb = "Already assigned to"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s task %s (%s)\n", verb, result.Task.ID, result.AppointmentID)
			return nil
		},
	}
}

func newAttachMyTasksCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "mytasks",
		Short: "List in-progress tasks assigned to you on active projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var items []tracking.Entity
			err := ctx.withAttacher(cmd, func(runCtx context.Context, a *attach.Attacher) error {
				var err error
				items, err = a.MyTasks(runCtx, limit)
				return err
			})
			if err != nil {
				return err
			}
			return writeAttachments(cmd, ctx, "tasks", items)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", attach.DefaultMyTasksLimit, "Maximum number of tasks")
	return cmd
}

func writeAttachments(cmd *cobra.Command, ctx *commandContext, kind string, items []tracking.Entity) error {
	if ctx.jsonOutput() {
		if items == nil {
			items = []tracking.Entity{}
		}
		return writeJSON(cmd, items)
	}
	printAttachments(cmd.OutOrStdout(), kind, items)
	return nil
}

func printAttachments(out io.Writer, kind string, items []tracking.Entity) {
	if len(items) == 0 {
		fmt.Fprintf(out, "No %s found\n", kind)
		return
	}
	rows := make([][]string, 0, len(items))
	spec := tableSpec{}
	switch kind {
	case "notes":
		spec.Headers = []string{"Date", "Content", "ID"}
		for _, n := range items {
			rows = append(rows, []string{n.Attr("date"), n.Attr("content"), n.ID})
		}
	case "tasks":
		spec.Headers = []string{"Task", "Project", "ID"}
		for _, t := range items {
			rows = append(rows, []string{t.Name(), t.ProjectID(), t.ID})
		}
	case "timelogs":
		spec.Headers = []string{"Start", "Duration", "Comment", "ID"}
		spec.Aligns = []columnAlignment{alignLeft, alignRight, alignLeft, alignLeft}
		for _, t := range items {
			d := time.Duration(t.Float("duration") * float64(time.Second))
			rows = append(rows, []string{t.Attr("start"), d.String(), t.Attr("comment"), t.ID})
		}
	default:
		spec.Headers = []string{"Version", "Asset", "Comment", "ID"}
		spec.Aligns = []columnAlignment{alignRight}
		for _, v := range items {
			rows = append(rows, []string{v.Attr("version"), v.Attr("asset_id"), v.Attr("comment"), v.ID})
		}
	}
	spec.Rows = rows
	fmt.Fprintln(out, renderTable(out, spec))
	if kind == "timelogs" {
		fmt.Fprintf(out, "Total: %s\n", attach.TotalDuration(items))
	}
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return strings.TrimSpace(args[i])
	}
	return ""
}
