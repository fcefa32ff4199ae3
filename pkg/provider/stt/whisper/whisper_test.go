package whisper

import "testing"

// TestNew_EmptyModelPath checks that an empty model path is rejected before
// any native code runs.
func TestNew_EmptyModelPath(t *testing.T) {
	_, err := New("")
	if err == nil {
		t.Fatal("expected error for empty modelPath")
	}
}
