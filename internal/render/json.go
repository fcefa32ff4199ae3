package render

import (
	"fmt"
	"os"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// jsonRenderer writes the canonical interchange document, byte-stable for a
// given collection so repeated runs diff cleanly.
type jsonRenderer struct{}

func (r *jsonRenderer) Extension() string { return "json" }

func (r *jsonRenderer) Render(col *segment.Collection, path string) error {
	if err := checkRenderable(col); err != nil {
		return err
	}
	data, err := segment.MarshalInterchange(col)
	if err != nil {
		return fmt.Errorf("render: marshal interchange: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("render: write %s: %w", path, err)
	}
	return nil
}
