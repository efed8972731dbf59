package store

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"mmstudio/internal/mda"
	"mmstudio/internal/mmcore"
)

// ImageSequenceWriter writes one 16-bit grayscale PNG per frame into a
// directory, plus a sequence.json manifest when the run finishes.
type ImageSequenceWriter struct {
	dir string

	mu      sync.Mutex
	seq     *mda.Sequence
	labels  []string
	written int
}

func NewImageSequenceWriter(dir string) *ImageSequenceWriter {
	return &ImageSequenceWriter{dir: dir}
}

func (w *ImageSequenceWriter) Dir() string { return w.dir }

func (w *ImageSequenceWriter) Reset(seq *mda.Sequence) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create image sequence directory: %w", err)
	}
	labels := make([]string, 0, len(seq.Axes))
	for _, ax := range seq.Axes {
		labels = append(labels, ax.Label)
	}
	w.mu.Lock()
	w.seq = seq
	w.labels = labels
	w.written = 0
	w.mu.Unlock()
	return nil
}

func (w *ImageSequenceWriter) FrameReady(frame mmcore.Frame, ev mda.Event, meta mda.FrameMeta) error {
	w.mu.Lock()
	name := w.frameFileName(ev.Index)
	w.written++
	w.mu.Unlock()

	img := image.NewGray16(image.Rect(0, 0, frame.Width, frame.Height))
	for i, p := range frame.Pix {
		img.Pix[2*i] = byte(p >> 8)
		img.Pix[2*i+1] = byte(p)
	}

	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return fmt.Errorf("failed to create frame file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return f.Close()
}

func (w *ImageSequenceWriter) SequenceFinished(seq *mda.Sequence) error {
	w.mu.Lock()
	written := w.written
	w.mu.Unlock()

	manifest := struct {
		UID      string            `json:"uid"`
		Axes     []mda.Axis        `json:"axes"`
		Frames   int               `json:"frames"`
		Metadata map[string]string `json:"metadata,omitempty"`
	}{
		UID:      seq.UID,
		Axes:     seq.Axes,
		Frames:   written,
		Metadata: seq.Metadata,
	}
	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(w.dir, "sequence.json"), raw, 0o644)
}

// frameFileName builds names like frame_t000_z002.png. Sequences without
// axes produce a single frame.png.
func (w *ImageSequenceWriter) frameFileName(index map[string]int) string {
	if len(w.labels) == 0 {
		return "frame.png"
	}
	var b strings.Builder
	b.WriteString("frame")
	for _, label := range w.labels {
		fmt.Fprintf(&b, "_%s%03d", label, index[label])
	}
	b.WriteString(".png")
	return b.String()
}
