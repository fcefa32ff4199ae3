package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// markdownRenderer writes a human-readable transcript: a metadata header
// followed by one paragraph per segment, optionally prefixed with bold
// timecodes and speaker labels.
type markdownRenderer struct {
	opts Options
}

func (r *markdownRenderer) Extension() string { return "md" }

func (r *markdownRenderer) Render(col *segment.Collection, path string) error {
	if err := checkRenderable(col); err != nil {
		return err
	}
	content := r.content(col)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("render: write %s: %w", path, err)
	}
	return nil
}

func (r *markdownRenderer) content(col *segment.Collection) string {
	speakers := col.Speakers()
	withSpeakers := r.opts.IncludeSpeakers && len(speakers) > 0

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.opts.title(col))

	if col.Len() > 0 {
		fmt.Fprintf(&sb, "**Duration:** %s\n", readableTimecode(col.TotalDuration()))
		fmt.Fprintf(&sb, "**Segments:** %d\n", col.Len())
		if withSpeakers {
			fmt.Fprintf(&sb, "**Speakers:** %d\n", len(speakers))
		}
		sb.WriteByte('\n')
	}

	for _, s := range col.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		var prefix []string
		if r.opts.IncludeTimecodes {
			prefix = append(prefix, fmt.Sprintf("**%s**", readableTimecode(s.Start)))
		}
		if withSpeakers && s.Speaker != "" {
			prefix = append(prefix, fmt.Sprintf("**%s**", s.Speaker))
		}
		if len(prefix) > 0 {
			sb.WriteString(strings.Join(prefix, " "))
			sb.WriteString(": ")
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
