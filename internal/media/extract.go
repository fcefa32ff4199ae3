// Package media prepares source files for transcription. It shells out to
// ffmpeg to extract a normalised audio track (mono, 16 kHz, 16-bit PCM WAV)
// from any container ffmpeg understands, and decodes that WAV into the
// float32 samples the STT providers consume.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// SampleRate is the sample rate in Hz of all extracted audio.
const SampleRate = 16000

// ExtractAudio uses ffmpeg to extract a mono 16 kHz WAV from a media file
// and returns the path of the extracted file. tmpDir defaults to the OS temp
// directory. The caller owns the output file and should remove it when done.
func ExtractAudio(ctx context.Context, mediaPath string, tmpDir string) (string, error) {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	out := filepath.Join(tmpDir, base+"_audio_16k.wav")

	// ffmpeg -y -i input -vn -ac 1 -ar 16000 -c:a pcm_s16le -f wav output
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y", "-i", mediaPath,
		"-vn",
		"-ac", "1", "-ar", fmt.Sprint(SampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &segment.CollaboratorError{
			Collaborator: "ffmpeg",
			Err:          fmt.Errorf("%w: %s", err, lastLine(stderr.String())),
		}
	}
	return out, nil
}

// lastLine returns the final non-empty line of ffmpeg's stderr, which is
// where it reports the actual failure.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return "no ffmpeg output"
}
