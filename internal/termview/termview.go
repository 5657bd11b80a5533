// Package termview draws a rendered station view for the terminal.
package termview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matthewbaird/stationcu/internal/render"
	"github.com/matthewbaird/stationcu/internal/types"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	colorMuted    lipgloss.TerminalColor = ac("240", "245")
	colorOpen     lipgloss.TerminalColor = ac("28", "42")   // green
	colorChecked  lipgloss.TerminalColor = ac("130", "214") // amber
	colorComplete lipgloss.TerminalColor = ac("27", "75")   // blue
	colorError    lipgloss.TerminalColor = ac("160", "203")
	colorBorder   lipgloss.TerminalColor = ac("250", "240")

	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
	deletedStyle = lipgloss.NewStyle().Strikethrough(true).Foreground(colorMuted)
)

// Options tunes terminal output.
type Options struct {
	Width    int  // card width; 0 fits content
	AllLines bool // show lines of collapsed stations too
}

// Render draws v.
func Render(v render.View, opts Options) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Station Materials"))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(v.Status))
	b.WriteString("\n")

	if v.LoadError != "" {
		b.WriteString(errorStyle.Render("Load error: " + v.LoadError))
		b.WriteString("\n")
	}
	if !v.Actor.IsZero() {
		who := v.Actor.ID
		if v.Actor.Name != "" {
			who = fmt.Sprintf("%s (%s)", v.Actor.Name, v.Actor.ID)
		}
		b.WriteString(mutedStyle.Render("User: " + who))
		b.WriteString("\n")
	}

	if len(v.ActivityFields) > 0 {
		b.WriteString("\n")
		b.WriteString(activityTable(v.ActivityFields))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(summaryLine(v))
	b.WriteString("\n")

	for _, st := range v.Stations {
		b.WriteString(stationCard(st, opts))
		b.WriteString("\n")
	}
	if v.Filters.Hidden > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%d station(s) hidden by filters", v.Filters.Hidden)))
		b.WriteString("\n")
	}
	if v.Search != nil {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Searching catalog for %s/%s (%s)", v.Search.StationID, v.Search.LineID, v.Search.Field)))
		b.WriteString("\n")
	}
	return b.String()
}

func activityTable(fields []render.Field) string {
	width := 0
	for _, f := range fields {
		width = max(width, lipgloss.Width(f.Name))
	}
	label := mutedStyle.Width(width + 2)
	rows := make([]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, label.Render(f.Name), f.Value))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func summaryLine(v render.View) string {
	s := v.Summary
	parts := []string{
		fmt.Sprintf("%d stations", s.Stations),
		fmt.Sprintf("%d lines", s.Lines),
	}
	if s.DeletedLines > 0 {
		parts = append(parts, fmt.Sprintf("%d deleted", s.DeletedLines))
	}
	for _, status := range types.AllStatuses {
		if n := s.ByStatus[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", status.Label(), n))
		}
	}
	return strings.Join(parts, " · ")
}

func badge(st render.StationView) string {
	c := colorOpen
	switch st.BadgeClass {
	case "status-checked-out":
		c = colorChecked
	case "status-complete":
		c = colorComplete
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true).Render("[" + st.Badge + "]")
}

func stationCard(st render.StationView, opts Options) string {
	marker := "▸"
	if st.Expanded {
		marker = "▾"
	}
	head := fmt.Sprintf("%s %s  %s %s", marker, titleStyle.Render(st.ID), st.Name, badge(st))
	if st.CheckedOutBy != nil {
		who := st.CheckedOutBy.Name
		if who == "" {
			who = st.CheckedOutBy.ID
		}
		head += mutedStyle.Render("  by " + who)
	}
	lines := []string{head}
	if st.Location != "" {
		lines = append(lines, mutedStyle.Render(st.Location))
	}
	lines = append(lines, mutedStyle.Render(fmt.Sprintf("%d lines · required %d · installed %d",
		st.Totals.Lines, st.Totals.Required, st.Totals.Installed)))

	if st.Expanded || opts.AllLines {
		lines = append(lines, "", lineTable(st.Lines))
	}

	style := cardStyle
	if opts.Width > 0 {
		style = style.Width(opts.Width)
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func lineTable(rows []render.LineView) string {
	if len(rows) == 0 {
		return mutedStyle.Render("no material lines")
	}
	cols := []string{"ID", "Stock", "Description", "Req", "Inst", "Disposition"}
	cells := make([][]string, 0, len(rows))
	for _, l := range rows {
		id := l.ID
		if l.IsNew {
			id += "*"
		}
		cells = append(cells, []string{
			id, l.StockNumber, l.Description,
			fmt.Sprint(l.QuantityRequired), fmt.Sprint(l.QuantityInstalled), string(l.Disposition),
		})
	}

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = lipgloss.Width(c)
	}
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	format := func(row []string) string {
		padded := make([]string, len(row))
		for i, c := range row {
			padded[i] = c + strings.Repeat(" ", widths[i]-lipgloss.Width(c))
		}
		return strings.TrimRight(strings.Join(padded, "  "), " ")
	}

	out := []string{headerStyle.Render(format(cols))}
	for i, row := range cells {
		text := format(row)
		if rows[i].Deleted {
			text = deletedStyle.Render(text)
		}
		out = append(out, text)
	}
	return strings.Join(out, "\n")
}

// Entries draws catalog search results.
func Entries(entries []types.CatalogEntry) string {
	if len(entries) == 0 {
		return mutedStyle.Render("no matching stock numbers") + "\n"
	}
	width := lipgloss.Width("Stock")
	for _, e := range entries {
		width = max(width, lipgloss.Width(e.StockNumber))
	}
	stock := lipgloss.NewStyle().Width(width + 2)
	var b strings.Builder
	b.WriteString(headerStyle.Render(stock.Render("Stock") + "Description"))
	b.WriteString("\n")
	for _, e := range entries {
		b.WriteString(stock.Render(e.StockNumber))
		b.WriteString(e.Description)
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d result(s)", len(entries))))
	b.WriteString("\n")
	return b.String()
}
