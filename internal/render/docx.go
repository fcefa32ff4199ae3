package render

import (
	"fmt"
	"strings"

	"github.com/gomutex/godocx"

	"github.com/MrWong99/captionforge/pkg/segment"
)

const (
	docxFontName = "Times New Roman"
	docxFontSize = 13
	docxColor    = "000000"
)

// docxRenderer writes a Word document: bold title, a metadata paragraph, and
// one paragraph per segment with bold timecode/speaker prefixes.
type docxRenderer struct {
	opts Options
}

func (r *docxRenderer) Extension() string { return "docx" }

func (r *docxRenderer) Render(col *segment.Collection, path string) error {
	if err := checkRenderable(col); err != nil {
		return err
	}

	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("render: new docx: %w", err)
	}

	title := doc.AddParagraph("")
	title.AddText(r.opts.title(col)).Font(docxFontName).Size(16).Color(docxColor).Bold(true)

	speakers := col.Speakers()
	withSpeakers := r.opts.IncludeSpeakers && len(speakers) > 0

	if col.Len() > 0 {
		meta := doc.AddParagraph("")
		line := fmt.Sprintf("Duration %s, %d segments", readableTimecode(col.TotalDuration()), col.Len())
		if withSpeakers {
			line += fmt.Sprintf(", %d speakers", len(speakers))
		}
		meta.AddText(line).Font(docxFontName).Size(docxFontSize).Color(docxColor)
		doc.AddParagraph("")
	}

	for _, s := range col.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		p := doc.AddParagraph("")

		var prefix []string
		if r.opts.IncludeTimecodes {
			prefix = append(prefix, readableTimecode(s.Start))
		}
		if withSpeakers && s.Speaker != "" {
			prefix = append(prefix, s.Speaker)
		}
		if len(prefix) > 0 {
			p.AddText(strings.Join(prefix, " ") + ": ").
				Font(docxFontName).Size(docxFontSize).Color(docxColor).Bold(true)
		}
		p.AddText(text).Font(docxFontName).Size(docxFontSize).Color(docxColor)
	}

	if err := doc.SaveTo(path); err != nil {
		return fmt.Errorf("render: write %s: %w", path, err)
	}
	return nil
}
