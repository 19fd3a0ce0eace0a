// Package ui renders switcher snapshots with lipgloss and hosts them in a
// bubbletea program.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/Johannes-Berggren/goblinswitch/internal/models"
	"github.com/Johannes-Berggren/goblinswitch/internal/switcher"
)

const (
	defaultWidth         = 80
	defaultProgressWidth = 40
	minListWidth         = 24
)

// Sender delivers a message to the running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// frameMsg carries a frame; it is drawn against the current window width.
type frameMsg func(width int) string

type clearMsg struct{}

// Renderer implements switcher.Renderer by pushing frames to a Sender.
type Renderer struct {
	out  Sender
	keys switcher.KeyMap
	help help.Model
	bar  progress.Model
	now  func() time.Time
}

var _ switcher.Renderer = (*Renderer)(nil)

// NewRenderer creates a Renderer. progressWidth <= 0 selects the default.
func NewRenderer(out Sender, keys switcher.KeyMap, progressWidth int) *Renderer {
	if progressWidth <= 0 {
		progressWidth = defaultProgressWidth
	}
	return &Renderer{
		out:  out,
		keys: keys,
		help: help.New(),
		bar:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressWidth)),
		now:  time.Now,
	}
}

func (r *Renderer) RenderListing(v switcher.ListingView) {
	now := r.now()
	r.out.Send(frameMsg(func(width int) string {
		return r.Listing(v, width, now)
	}))
}

func (r *Renderer) RenderCheckout(v switcher.CheckoutView) {
	r.out.Send(frameMsg(func(int) string {
		return r.Checkout(v)
	}))
}

// Clear ends the program, which restores the terminal.
func (r *Renderer) Clear() {
	r.out.Send(clearMsg{})
}

// Listing draws the branch list with a details panel, status line and key help.
func (r *Renderer) Listing(v switcher.ListingView, width int, now time.Time) string {
	if width <= 0 {
		width = defaultWidth
	}
	listWidth := max(width*7/10, minListWidth)
	detailWidth := max(width-listWidth, minListWidth/2)

	list := boxStyle.Width(listWidth - 2).Render(r.branchList(v, listWidth-4, now))

	var selected *models.Branch
	if v.Selected >= 0 && v.Selected < len(v.Branches) {
		selected = &v.Branches[v.Selected]
	}
	details := boxStyle.Width(detailWidth - 2).Render(renderDetails(selected, v.Tree, detailWidth-4, now))

	body := lipgloss.JoinHorizontal(lipgloss.Top, list, details)

	lines := []string{body}
	if s := statusLine(v.Status, width); s != "" {
		lines = append(lines, s)
	}
	lines = append(lines, r.help.ShortHelpView(r.keys.ShortHelp()))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (r *Renderer) branchList(v switcher.ListingView, width int, now time.Time) string {
	var out strings.Builder
	out.WriteString(headerStyle.Render("Working branches"))
	out.WriteString("\n\n")

	if len(v.Branches) == 0 {
		out.WriteString(mutedStyle.Render("no local branches"))
		return out.String()
	}

	for i, b := range v.Branches {
		age := relativeTime(b.CommitTime(), now)
		// marker, hash and age take a fixed share of the row
		nameWidth := max(width-len(age)-12, 8)
		name := truncate.StringWithTail(b.Name, uint(nameWidth), "…")

		var line string
		if b.IsCurrent {
			line = "* " + currentStyle.Render(name)
		} else {
			line = "  " + branchStyle.Render(name)
		}
		line += " " + hashStyle.Render(b.ShortHash()) + " " + mutedStyle.Render(age)

		if i == v.Selected {
			line = selectedStyle.Render("▸ " + line)
		} else {
			line = "  " + line
		}
		out.WriteString(line)
		if i < len(v.Branches)-1 {
			out.WriteString("\n")
		}
	}
	return out.String()
}

func renderDetails(b *models.Branch, tree *models.WorkingTree, width int, now time.Time) string {
	var out strings.Builder
	out.WriteString(headerStyle.Render("Branch details"))
	out.WriteString("\n\n")

	if b == nil {
		out.WriteString(mutedStyle.Render("nothing selected"))
		return out.String()
	}

	field := func(label, value string) {
		out.WriteString(labelStyle.Render(label))
		out.WriteString("\n")
		out.WriteString(truncate.StringWithTail(value, uint(max(width, 4)), "…"))
		out.WriteString("\n")
	}

	field("name", b.Name)
	field("commit", hashStyle.Render(b.ShortHash()))
	field("updated", relativeTime(b.CommitTime(), now))
	if b.Head.Message != "" {
		field("subject", b.Head.Message)
	}
	if b.Head.Author != "" {
		field("author", b.Head.Author)
	}
	if b.Upstream != "" {
		field("upstream", b.Upstream)
	}
	if tree != nil {
		summary := tree.Summary()
		if !tree.Clean() {
			summary = dirtyStyle.Render(summary)
		}
		field("worktree", summary)
	}
	return strings.TrimRight(out.String(), "\n")
}

func statusLine(s switcher.Status, width int) string {
	text := truncate.StringWithTail(s.Text, uint(max(width-2, 8)), "…")
	switch s.Kind {
	case switcher.StatusInfo:
		return infoStyle.Render(text)
	case switcher.StatusError:
		return errorStyle.Render("✗ " + text)
	default:
		return ""
	}
}

// Checkout draws the progress frame shown while a checkout runs.
func (r *Renderer) Checkout(v switcher.CheckoutView) string {
	title := headerStyle.Render(fmt.Sprintf("Checking out %s", v.Branch))
	bar := r.bar.ViewAs(float64(v.Percent) / 100)

	label := v.Label
	if label == "" {
		label = "preparing"
	}
	content := lipgloss.JoinVertical(lipgloss.Left, title, "", bar, mutedStyle.Render(label))
	return checkoutBoxStyle.Render(content)
}
