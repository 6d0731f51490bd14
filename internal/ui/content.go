package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ltree "github.com/charmbracelet/lipgloss/tree"

	"github.com/2lenet/sulu/internal/model"
	"github.com/2lenet/sulu/internal/stopwatch"
	"github.com/2lenet/sulu/internal/tree"
)

// DraftMarker flags unpublished items.
const DraftMarker = "(draft)"

// ItemLabel renders an item as "Title  path" with a draft marker.
func ItemLabel(item model.Item) string {
	label := Accent.Render(item.DisplayTitle()) + "  " + Muted.Render(item.Path)
	if item.Locale != "" {
		label += Muted.Render(" @" + item.Locale)
	}
	if !item.Published {
		label += " " + Muted.Render(DraftMarker)
	}
	return label
}

// RenderItems renders items as a table of depth, title, path and locale.
func RenderItems(items []model.Item, display *DisplayContext) string {
	if len(items) == 0 {
		return Hint("No items.") + "\n"
	}
	width := DefaultTermWidth
	if display != nil {
		width = display.TermWidth
	}

	t := NewTable(4)
	for _, item := range items {
		title := item.DisplayTitle()
		if !item.Published {
			title += " " + DraftMarker
		}
		t.AddRow(
			Muted.Render(strconv.Itoa(item.Depth)),
			Accent.Render(truncate(title, width/3)),
			item.Path,
			Muted.Render(item.Locale),
		)
	}
	return t.String()
}

// RenderTree renders nested items with rounded branch connectors.
func RenderTree(roots []*tree.Node[model.Item]) string {
	if len(roots) == 0 {
		return Hint("No items.") + "\n"
	}
	t := ltree.New().
		Enumerator(ltree.RoundedEnumerator).
		EnumeratorStyle(Muted)
	for _, root := range roots {
		t.Child(branch(root))
	}
	return t.String() + "\n"
}

func branch(n *tree.Node[model.Item]) any {
	if len(n.Children) == 0 {
		return ItemLabel(n.Item)
	}
	t := ltree.Root(ItemLabel(n.Item)).
		Enumerator(ltree.RoundedEnumerator).
		EnumeratorStyle(Muted)
	for _, c := range n.Children {
		t.Child(branch(c))
	}
	return t
}

// RenderSpans renders stopwatch events with their durations.
func RenderSpans(events []stopwatch.Event) string {
	if len(events) == 0 {
		return ""
	}
	var total time.Duration
	t := NewTable(2)
	for _, ev := range events {
		t.AddRow(ev.Name, Muted.Render(ev.Duration.String()))
		total += ev.Duration
	}
	var sb strings.Builder
	sb.WriteString(Header("Timings") + "\n")
	sb.WriteString(t.String())
	sb.WriteString(Hint(fmt.Sprintf("total %s", total)) + "\n")
	return sb.String()
}

func truncate(s string, limit int) string {
	if limit <= 3 || len([]rune(s)) <= limit {
		return s
	}
	r := []rune(s)
	if len(r) > limit-1 {
		r = r[:limit-1]
	}
	return string(r) + "…"
}
