package render

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/MrWong99/captionforge/pkg/segment"
)

type ittParagraph struct {
	XMLName xml.Name `xml:"p"`
	Begin   string   `xml:"begin,attr"`
	End     string   `xml:"end,attr"`
	Text    string   `xml:",chardata"`
}

type ittDoc struct {
	XMLName    xml.Name       `xml:"tt"`
	Xmlns      string         `xml:"xmlns,attr"`
	Lang       string         `xml:"xml:lang,attr,omitempty"`
	Paragraphs []ittParagraph `xml:"body>div>p"`
}

// ittRenderer writes TTML subtitles with millisecond timecodes, snapped to
// the frame grid when a frame rate is configured.
type ittRenderer struct {
	opts Options
}

func (r *ittRenderer) Extension() string { return "itt" }

func (r *ittRenderer) Render(col *segment.Collection, path string) error {
	if err := checkRenderable(col); err != nil {
		return err
	}

	doc := ittDoc{
		Xmlns: "http://www.w3.org/ns/ttml",
		Lang:  col.Language,
	}
	for _, s := range col.Segments {
		doc.Paragraphs = append(doc.Paragraphs, ittParagraph{
			Begin: ittTime(s.Start, r.opts.FrameRate),
			End:   ittTime(s.End, r.opts.FrameRate),
			Text:  s.Text,
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("render: marshal itt: %w", err)
	}
	content := xml.Header + string(out) + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("render: write %s: %w", path, err)
	}
	return nil
}
