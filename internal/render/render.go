// Package render turns a finished segment collection into output documents:
// FCPXML title sequences, ITT (TTML) subtitles, Markdown transcripts, the
// JSON interchange format, and DOCX documents.
//
// Renderers check structural correctness before writing anything — ordering,
// timing sanity, and same-speaker overlaps are render-blocking, because a
// structurally broken subtitle file fails in the target application with a
// far worse message than ours.
package render

import (
	"fmt"
	"sort"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// Options carries the cross-format rendering knobs. Formats ignore fields
// they have no use for.
type Options struct {
	// Title is the document or project name. Empty defaults to the
	// collection's source file name.
	Title string

	// FrameRate is the video frame rate in fps used for frame-aware
	// timecode rounding (29.97 and 23.976 NTSC rates get exact rational
	// treatment). Zero means timestamps are used as-is.
	FrameRate float64

	// Width and Height describe the target video raster for FCPXML. Zero
	// selects 1920x1080.
	Width  int
	Height int

	// IncludeTimecodes and IncludeSpeakers control the Markdown and DOCX
	// transcript line prefixes.
	IncludeTimecodes bool
	IncludeSpeakers  bool
}

// Renderer writes a collection to the file at path in one output format.
type Renderer interface {
	// Extension returns the output file extension without the dot.
	Extension() string

	// Render validates col and writes the document to path.
	Render(col *segment.Collection, path string) error
}

// New returns the renderer for the named format. Known formats: "fcpxml",
// "itt", "markdown", "json", "docx". Unknown names are a
// *segment.ConfigurationError.
func New(format string, opts Options) (Renderer, error) {
	switch format {
	case "fcpxml":
		return &fcpxmlRenderer{opts: opts}, nil
	case "itt":
		return &ittRenderer{opts: opts}, nil
	case "markdown", "md":
		return &markdownRenderer{opts: opts}, nil
	case "json":
		return &jsonRenderer{}, nil
	case "docx":
		return &docxRenderer{opts: opts}, nil
	default:
		return nil, &segment.ConfigurationError{
			Param:  "format",
			Reason: fmt.Sprintf("unknown output format %q (known: %v)", format, Formats()),
		}
	}
}

// Formats lists the supported output format names.
func Formats() []string {
	f := []string{"docx", "fcpxml", "itt", "json", "markdown"}
	sort.Strings(f)
	return f
}

// checkRenderable wraps collection validation with render context. Every
// renderer calls this before producing output.
func checkRenderable(col *segment.Collection) error {
	if err := col.Validate(); err != nil {
		return fmt.Errorf("render: collection is not structurally sound: %w", err)
	}
	return nil
}

// title resolves the document title from options and the collection.
func (o Options) title(col *segment.Collection) string {
	if o.Title != "" {
		return o.Title
	}
	if col.Source != "" {
		return col.Source
	}
	return "Transcript"
}
