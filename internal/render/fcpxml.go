package render

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// maxSubtitleLineChars is the wrap width for title text. Two lines at this
// width fit the Final Cut default title safe area.
const maxSubtitleLineChars = 35

// titleEffectUID is the Custom title effect every subtitle references.
const titleEffectUID = ".../Titles.localized/Build In:Out.localized/Custom.localized/Custom.moti"

type fcpFormat struct {
	XMLName       xml.Name `xml:"format"`
	ID            string   `xml:"id,attr"`
	Name          string   `xml:"name,attr"`
	FrameDuration string   `xml:"frameDuration,attr"`
	Width         int      `xml:"width,attr"`
	Height        int      `xml:"height,attr"`
}

type fcpEffect struct {
	XMLName xml.Name `xml:"effect"`
	ID      string   `xml:"id,attr"`
	Name    string   `xml:"name,attr"`
	UID     string   `xml:"uid,attr"`
}

type fcpTitle struct {
	XMLName  xml.Name `xml:"title"`
	Ref      string   `xml:"ref,attr"`
	Name     string   `xml:"name,attr"`
	Lane     string   `xml:"lane,attr"`
	Offset   string   `xml:"offset,attr"`
	Duration string   `xml:"duration,attr"`
	Start    string   `xml:"start,attr"`
	Text     string   `xml:"text"`
}

type fcpGap struct {
	XMLName  xml.Name   `xml:"gap"`
	Name     string     `xml:"name,attr"`
	Offset   string     `xml:"offset,attr"`
	Duration string     `xml:"duration,attr"`
	Start    string     `xml:"start,attr"`
	Titles   []fcpTitle `xml:"title"`
}

type fcpSequence struct {
	XMLName     xml.Name `xml:"sequence"`
	Duration    string   `xml:"duration,attr"`
	Format      string   `xml:"format,attr"`
	TCStart     string   `xml:"tcStart,attr"`
	TCFormat    string   `xml:"tcFormat,attr"`
	AudioLayout string   `xml:"audioLayout,attr"`
	AudioRate   string   `xml:"audioRate,attr"`
	Gap         fcpGap   `xml:"spine>gap"`
}

type fcpProject struct {
	XMLName  xml.Name    `xml:"project"`
	Name     string      `xml:"name,attr"`
	Sequence fcpSequence `xml:"sequence"`
}

type fcpEvent struct {
	XMLName xml.Name   `xml:"event"`
	Name    string     `xml:"name,attr"`
	Project fcpProject `xml:"project"`
}

type fcpLibrary struct {
	XMLName  xml.Name `xml:"library"`
	Location string   `xml:"location,attr"`
	Event    fcpEvent `xml:"event"`
}

type fcpxmlDoc struct {
	XMLName   xml.Name   `xml:"fcpxml"`
	Version   string     `xml:"version,attr"`
	Resources struct {
		Format fcpFormat `xml:"format"`
		Effect fcpEffect `xml:"effect"`
	} `xml:"resources"`
	Library fcpLibrary `xml:"library"`
}

// fcpxmlRenderer writes an FCPXML 1.8 document: one sequence whose spine
// holds a single full-length gap, with every subtitle as a lane-1 title
// anchored to the gap.
type fcpxmlRenderer struct {
	opts Options
}

func (r *fcpxmlRenderer) Extension() string { return "fcpxml" }

func (r *fcpxmlRenderer) Render(col *segment.Collection, path string) error {
	if err := checkRenderable(col); err != nil {
		return err
	}
	if col.Len() == 0 {
		return fmt.Errorf("render: no segments to write to %s", path)
	}

	formatName, frameDuration, timebase := formatSettings(r.opts.Width, r.opts.Height, r.opts.FrameRate)
	width, height := r.opts.Width, r.opts.Height
	if width == 0 {
		width = 1920
	}
	if height == 0 {
		height = 1080
	}

	total := rationalTime(col.TotalDuration(), frameDuration, timebase)

	doc := fcpxmlDoc{Version: "1.8"}
	doc.Resources.Format = fcpFormat{
		ID: "r1", Name: formatName, FrameDuration: frameDuration,
		Width: width, Height: height,
	}
	doc.Resources.Effect = fcpEffect{ID: "r2", Name: "Custom", UID: titleEffectUID}

	gap := fcpGap{Name: "Gap", Offset: "0/1s", Duration: total, Start: "0/1s"}
	for i, s := range col.Segments {
		gap.Titles = append(gap.Titles, fcpTitle{
			Ref:      "r2",
			Name:     fmt.Sprintf("Title %d", i+1),
			Lane:     "1",
			Offset:   rationalTime(s.Start, frameDuration, timebase),
			Duration: rationalTime(s.Duration(), frameDuration, timebase),
			Start:    "0/1s",
			Text:     wrapSubtitleText(s.Text, maxSubtitleLineChars),
		})
	}

	doc.Library = fcpLibrary{
		Location: "",
		Event: fcpEvent{
			Name: "Subtitle Event",
			Project: fcpProject{
				Name: r.opts.title(col),
				Sequence: fcpSequence{
					Duration: total, Format: "r1",
					TCStart: "0/1s", TCFormat: "NDF",
					AudioLayout: "stereo", AudioRate: "48k",
					Gap: gap,
				},
			},
		},
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("render: marshal fcpxml: %w", err)
	}
	content := xml.Header + "<!DOCTYPE fcpxml>\n" + string(out) + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("render: write %s: %w", path, err)
	}
	return nil
}

// wrapSubtitleText wraps text to at most two lines of roughly width chars.
// When even a widened wrap overflows two lines, the second line is truncated
// with an ellipsis rather than pushing a third line into the picture.
func wrapSubtitleText(text string, width int) string {
	lines := wrapWords(text, width)
	if len(lines) <= 2 {
		return strings.Join(lines, "\n")
	}
	lines = wrapWords(text, width+10)
	if len(lines) > 2 {
		lines = lines[:2]
		if len(lines[1]) > width-3 {
			lines[1] = lines[1][:width-3]
		}
		lines[1] += "..."
	}
	return strings.Join(lines, "\n")
}

// wrapWords greedily fills lines up to width characters, never splitting a
// word. A single word longer than width gets its own line.
func wrapWords(text string, width int) []string {
	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(text) {
		if cur.Len() == 0 {
			cur.WriteString(word)
			continue
		}
		if cur.Len()+1+len(word) > width {
			lines = append(lines, cur.String())
			cur.Reset()
			cur.WriteString(word)
			continue
		}
		cur.WriteByte(' ')
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
