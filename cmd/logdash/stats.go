package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mchurichi/logdash/pkg/stats"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8ab4f8"))
	keyStyle   = lipgloss.NewStyle().Width(24)
	countStyle = lipgloss.NewStyle().Width(8).Align(lipgloss.Right).Bold(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#555555")).
			Padding(0, 1)

	levelColors = map[string]lipgloss.Color{
		"INFO":     lipgloss.Color("#198754"),
		"WARNING":  lipgloss.Color("#ffc107"),
		"ERROR":    lipgloss.Color("#dc3545"),
		"CRITICAL": lipgloss.Color("#ff00ff"),
		"DEBUG":    lipgloss.Color("#6c757d"),
	}
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		f   criteriaFlags
		top int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print record counts by level, hour, file and name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := f.criteria()
			if err != nil {
				return err
			}
			bundle, err := a.engine().Stats(cmd.Context(), criteria)
			if err != nil {
				return err
			}
			renderStats(cmd.OutOrStdout(), bundle, top)
			return nil
		},
	}

	f.register(cmd.Flags())
	cmd.Flags().IntVarP(&top, "top", "n", 10, "Rows per table, negative for all")
	return cmd
}

func renderStats(w io.Writer, b *stats.Bundle, top int) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%d records", b.Total())))

	tables := []string{
		renderTable("By level", b.ByLevel, top, levelColors),
		renderTable("By hour", b.ByHour, top, nil),
		renderTable("By file", b.ByFile, top, nil),
		renderTable("By name", b.ByName, top, nil),
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, tables...))
}

func renderTable(title string, counts map[string]int, top int, colors map[string]lipgloss.Color) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))

	entries := stats.Top(counts, top)
	if len(entries) == 0 {
		b.WriteString("\n" + keyStyle.Render("(none)"))
	}
	for _, e := range entries {
		key := keyStyle
		if color, ok := colors[e.Key]; ok {
			key = key.Foreground(color)
		}
		b.WriteString("\n" + key.Render(e.Key) + countStyle.Render(fmt.Sprint(e.Count)))
	}
	if hidden := len(counts) - len(entries); hidden > 0 {
		b.WriteString(fmt.Sprintf("\n… %d more", hidden))
	}
	return boxStyle.Render(b.String())
}
