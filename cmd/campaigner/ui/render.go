package ui

import (
	"fmt"
	"sort"
	"strings"

	"campaigner/internal/types"
	"campaigner/internal/usage"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Renderer turns lifecycle values into terminal text.
type Renderer struct {
	Styles Styles
	// Plain disables markdown styling (used when stdout is not a terminal).
	Plain bool
	Width int
}

// NewRenderer creates a renderer for the detected theme.
func NewRenderer(plain bool) *Renderer {
	return &Renderer{Styles: DefaultStyles(), Plain: plain, Width: 80}
}

// Markdown renders markdown with glamour, falling back to the raw text.
func (r *Renderer) Markdown(md string) string {
	style := "light"
	switch {
	case r.Plain:
		style = "notty"
	case r.Styles.Theme.IsDark:
		style = "dark"
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(r.Width),
	)
	if err != nil {
		return md
	}
	out, err := tr.Render(md)
	if err != nil {
		return md
	}
	return out
}

// StatusBadge renders one publish state.
func (r *Renderer) StatusBadge(s types.PublishState) string {
	badge := r.Styles.Badge
	switch s.Phase {
	case types.PhasePublished:
		badge = badge.Foreground(Success)
	case types.PhaseFailed:
		badge = badge.Foreground(Destructive)
	case types.PhasePublishing:
		badge = badge.Foreground(Warning)
	default:
		badge = badge.Foreground(r.Styles.Theme.Muted)
	}
	return badge.Render(s.String())
}

// PublishStatus renders a status map in platform display order.
func (r *Renderer) PublishStatus(status map[types.PlatformID]types.PublishState) string {
	var lines []string
	for _, p := range orderedPlatforms(status) {
		lines = append(lines, fmt.Sprintf("%-10s %s", p, r.StatusBadge(status[p])))
	}
	return strings.Join(lines, "\n")
}

func orderedPlatforms(status map[types.PlatformID]types.PublishState) []types.PlatformID {
	var out []types.PlatformID
	for _, p := range types.AllPlatforms {
		if _, ok := status[p]; ok {
			out = append(out, p)
		}
	}
	var extra []types.PlatformID
	for p := range status {
		known := false
		for _, k := range types.AllPlatforms {
			if k == p {
				known = true
				break
			}
		}
		if !known {
			extra = append(extra, p)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// CampaignRow is the one-line list form of a campaign.
func (r *Renderer) CampaignRow(c types.Campaign) string {
	var badges []string
	for _, p := range orderedPlatforms(c.PublishStatus) {
		badges = append(badges, fmt.Sprintf("%s:%s", p.Slug(), c.PublishStatus[p].Phase))
	}
	created := ""
	if !c.CreatedAt.IsZero() {
		created = c.CreatedAt.Local().Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("%s  %s  %s  %s",
		r.Styles.Bold.Render(c.ID),
		c.DisplayTitle(),
		r.Styles.Muted.Render(created),
		strings.Join(badges, " "))
}

// Bundle renders every channel of a bundle, one divided section each.
func (r *Renderer) Bundle(b types.ContentBundle) string {
	channels := [][2]string{
		{"Twitter", r.Styles.Card.Render(b.Twitter)},
		{"LinkedIn", r.Styles.Card.Render(b.LinkedIn)},
		{"Email", r.Styles.Card.Render(fmt.Sprintf("Subject: %s\n\n%s", b.Email.Subject, b.Email.Body))},
		{"Blog", r.Markdown(b.Blog)},
	}
	if b.ImageURL != "" {
		channels = append(channels, [2]string{"Image", r.Styles.Info.Render(b.ImageURL)})
	}
	var sections []string
	for i, ch := range channels {
		if i > 0 {
			sections = append(sections, r.Styles.RenderDivider(r.dividerWidth()))
		}
		sections = append(sections, r.Styles.Section.Render(ch[0]), ch[1])
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (r *Renderer) dividerWidth() int {
	if r.Width <= 0 || r.Width > 60 {
		return 60
	}
	return r.Width
}

// Campaign renders the detail view of a campaign.
func (r *Renderer) Campaign(c types.Campaign) string {
	header := []string{
		r.Styles.Title.Render(c.DisplayTitle()),
		r.Styles.Muted.Render("id: " + c.ID),
	}
	if c.Prompt != "" {
		header = append(header, r.Styles.Subtitle.Render("prompt: "+c.Prompt))
	}
	parts := append(header, "", r.Bundle(c.Content))
	if len(c.PublishStatus) > 0 {
		parts = append(parts, "", r.Styles.Section.Render("Publish status"), r.PublishStatus(c.PublishStatus))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Profile renders the session profile.
func (r *Renderer) Profile(p types.BrandProfile) string {
	names := make([]string, len(p.Platforms))
	for i, pl := range p.Platforms {
		names[i] = string(pl)
	}
	lines := []string{
		r.Styles.Title.Render(p.CompanyName),
		"Platforms: " + strings.Join(names, ", "),
		"Tone:      " + string(p.BrandVoice.Tone),
	}
	if p.BrandVoice.Description != "" {
		lines = append(lines, "Voice:     "+p.BrandVoice.Description)
	}
	return strings.Join(lines, "\n")
}

// Usage renders the call counters.
func (r *Renderer) Usage(stats usage.AggregatedStats) string {
	lines := []string{
		r.Styles.Title.Render("Service calls"),
		fmt.Sprintf("%-12s %6s %6s %6s %9s", "operation", "calls", "ok", "failed", "transport"),
	}
	ops := make([]string, 0, len(stats.ByOperation))
	for op := range stats.ByOperation {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		c := stats.ByOperation[op]
		lines = append(lines, fmt.Sprintf("%-12s %6d %6d %6d %9d", op, c.Calls, c.Succeeded, c.Failed, c.Transport))
	}
	t := stats.Total
	lines = append(lines, fmt.Sprintf("%-12s %6d %6d %6d %9d", "total", t.Calls, t.Succeeded, t.Failed, t.Transport))
	return strings.Join(lines, "\n")
}

// Error renders a failure as its user-facing message.
func (r *Renderer) Error(err error) string {
	return r.Styles.Error.Render("Error: ") + types.Message(err)
}

// Success renders a confirmation.
func (r *Renderer) Success(msg string) string {
	return r.Styles.Success.Render("✓ ") + msg
}
