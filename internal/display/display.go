// Package display renders projects and clips for the terminal.
package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tussienorway/tussievideo/pkg/models"
)

// nominalClipSeconds matches the default clip length of the video models.
const nominalClipSeconds = 7

type Renderer struct {
	out io.Writer
}

func New(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Projects prints a listing table, one row per project, in the order
// given by the caller.
func (r *Renderer) Projects(projects []*models.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(r.out, "No projects yet. Create one with 'new <name>'.")
		return
	}

	fmt.Fprintf(r.out, "%-36s  %-24s  %5s  %8s  %9s  %s\n",
		"ID", "NAME", "CLIPS", "RUNTIME", "SIZE", "CREATED")
	for _, p := range projects {
		fmt.Fprintf(r.out, "%-36s  %-24s  %5d  %8s  %9s  %s\n",
			p.ID,
			truncate(p.Name, 24),
			len(p.Clips),
			formatRuntime(p.EstimatedRuntime(nominalClipSeconds)),
			humanize.Bytes(p.PayloadBytes()),
			humanize.Time(p.CreatedAt),
		)
	}
}

// Clips prints the storyboard of a single project in order.
func (r *Renderer) Clips(project *models.Project) {
	fmt.Fprintf(r.out, "%s (%d clips, ~%s)\n",
		project.Name, len(project.Clips),
		formatRuntime(project.EstimatedRuntime(nominalClipSeconds)))

	for i, c := range project.Clips {
		marker := " "
		if c.ContinuationHandle != "" {
			marker = "+" // extendable server-side
		}
		fmt.Fprintf(r.out, "%3d %s [%-5s] %9s  %s\n",
			i+1, marker, c.MediaType,
			humanize.Bytes(uint64(len(c.Payload))),
			truncate(c.Prompt, 60))
	}
}

// Clip prints the detail view of one clip.
func (r *Renderer) Clip(c *models.Clip) {
	fmt.Fprintf(r.out, "Clip:      %s\n", c.ID)
	fmt.Fprintf(r.out, "Type:      %s\n", c.MediaType)
	fmt.Fprintf(r.out, "Created:   %s\n", c.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Size:      %s\n", humanize.Bytes(uint64(len(c.Payload))))
	fmt.Fprintf(r.out, "Prompt:    %s\n", c.Prompt)
	if c.ContinuationHandle != "" {
		fmt.Fprintln(r.out, "Extend:    server-side handle available")
	}
	if c.PreviewRef != "" {
		fmt.Fprintf(r.out, "Preview:   %s\n", c.PreviewRef)
	}
}

func formatRuntime(d time.Duration) string {
	return d.Truncate(time.Second).String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return strings.TrimSpace(s[:max-3]) + "..."
}
