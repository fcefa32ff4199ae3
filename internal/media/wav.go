package media

import (
	"encoding/binary"
	"fmt"
	"os"
)

// LoadSamples reads a 16-bit PCM WAV file and returns its content as mono
// float32 samples normalised to [-1.0, 1.0]. Multi-channel audio is
// down-mixed by averaging all channels per frame. Returns the samples and
// the file's sample rate in Hz.
func LoadSamples(path string) ([]float32, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("media: read wav: %w", err)
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("media: %s is not a RIFF/WAVE file", path)
	}

	var (
		channels   int
		sampleRate int
		bits       int
		pcm        []byte
	)

	// Walk the chunk list for "fmt " and "data". Chunks are word-aligned.
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			return nil, 0, fmt.Errorf("media: truncated %q chunk in %s", id, path)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("media: malformed fmt chunk in %s", path)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, 0, fmt.Errorf("media: %s uses audio format %d, want PCM (1)", path, format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+size]
		}
		off = body + size + size%2
	}

	if channels == 0 || sampleRate == 0 {
		return nil, 0, fmt.Errorf("media: %s has no fmt chunk", path)
	}
	if bits != 16 {
		return nil, 0, fmt.Errorf("media: %s has %d-bit samples, want 16", path, bits)
	}
	if pcm == nil {
		return nil, 0, fmt.Errorf("media: %s has no data chunk", path)
	}

	return pcmToFloat32Mono(pcm, channels), sampleRate, nil
}

// pcmToFloat32Mono converts 16-bit signed little-endian PCM to mono float32
// samples normalised to [-1.0, 1.0], averaging all channels per frame. Any
// trailing partial frame is silently ignored.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels < 1 {
		channels = 1
	}
	frames := len(pcm) / (2 * channels)
	mono := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[idx : idx+2]))
			sum += float32(sample) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
