package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"shotbridge/internal/connection"
	"shotbridge/internal/tracking"
)

var projectFields = []string{"id", "name", "full_name", "status"}

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	var search string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 || offset < 0 {
				return fmt.Errorf("--limit and --offset must not be negative")
			}
			var projects []tracking.Entity
			err := ctx.withConnection(cmd, func(runCtx context.Context, conn *connection.Connection) error {
				var err error
				projects, err = listProjects(runCtx, conn, search, offset, limit)
				return err
			})
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				if projects == nil {
					projects = []tracking.Entity{}
				}
				return writeJSON(cmd, projects)
			}
			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects found")
				return nil
			}
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{p.Name(), p.Attr("full_name"), p.Attr("status"), p.ID})
			}
			fmt.Fprintln(out, renderTable(out, tableSpec{
				Headers: []string{"Name", "Full name", "Status", "ID"},
				Rows:    rows,
				Colorize: func(column int, value string) text.Colors {
					if column == 2 && value != "" && value != "active" {
						return text.Colors{text.FgYellow}
					}
					return nil
				},
			}))
			return nil
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive substring of the name or full name")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of projects (0 = all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of projects to skip")
	return cmd
}

// listProjects returns projects sorted by name. Without a search term the
// server pages the result; with one, matching happens locally against both
// name and full_name before paging.
func listProjects(ctx context.Context, svc tracking.Service, search string, offset, limit int) ([]tracking.Entity, error) {
	q := tracking.Query{Type: tracking.TypeProject, Fields: projectFields, OrderBy: "name"}
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		q.Offset, q.Limit = offset, limit
		return svc.Query(ctx, q)
	}

	all, err := svc.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	matched := make([]tracking.Entity, 0, len(all))
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name()), search) ||
			strings.Contains(strings.ToLower(p.Attr("full_name")), search) {
			matched = append(matched, p)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}
