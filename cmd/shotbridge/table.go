package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// tableSpec describes one rendered table. Colorize maps a cell to its
// colour; it is only consulted when the output is a terminal.
type tableSpec struct {
	Headers  []string
	Rows     [][]string
	Aligns   []columnAlignment
	Colorize func(column int, value string) text.Colors
}

func renderTable(out io.Writer, spec tableSpec) string {
	columns := len(spec.Headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = spec.Headers[i]
	}
	tw.AppendHeader(header)

	colour := spec.Colorize != nil && shouldColorize(out)
	for _, row := range spec.Rows {
		r := make(table.Row, columns)
		for i := range columns {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			if colour {
				if colors := spec.Colorize(i, value); len(colors) > 0 {
					value = colors.Sprint(value)
				}
			}
			r[i] = value
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(spec.Aligns) && spec.Aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
