package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"mmstudio/internal/mda"
	"mmstudio/internal/mmcore"
)

const (
	boltKeyMeta      = "meta"
	boltBucketFrames = "frames"
)

type boltSequenceMeta struct {
	UID      string            `json:"uid"`
	Labels   []string          `json:"labels"`
	Dims     []int             `json:"dims"`
	Finished bool              `json:"finished"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// BoltHandler persists acquisition frames to a bbolt database. Each
// sequence gets a top-level bucket keyed by its UID holding a JSON meta
// record and a frames sub-bucket keyed by the canonical index key.
type BoltHandler struct {
	db *bolt.DB

	mu     sync.Mutex
	seqUID string
	labels []string
	dims   []int
}

func NewBoltHandler(path string) (*BoltHandler, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open frame database: %w", err)
	}
	return &BoltHandler{db: db}, nil
}

func (h *BoltHandler) Close() error { return h.db.Close() }

func (h *BoltHandler) Reset(seq *mda.Sequence) error {
	labels := make([]string, 0, len(seq.Axes))
	dims := make([]int, 0, len(seq.Axes))
	for _, ax := range seq.Axes {
		labels = append(labels, ax.Label)
		dims = append(dims, ax.Size)
	}

	err := h.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(seq.UID))
		if err != nil {
			return err
		}
		if _, err := b.CreateBucketIfNotExists([]byte(boltBucketFrames)); err != nil {
			return err
		}
		meta, err := json.Marshal(boltSequenceMeta{
			UID:      seq.UID,
			Labels:   labels,
			Dims:     dims,
			Metadata: seq.Metadata,
		})
		if err != nil {
			return err
		}
		return b.Put([]byte(boltKeyMeta), meta)
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sequence bucket: %w", err)
	}

	h.mu.Lock()
	h.seqUID = seq.UID
	h.labels = labels
	h.dims = dims
	h.mu.Unlock()
	return nil
}

func (h *BoltHandler) FrameReady(frame mmcore.Frame, ev mda.Event, meta mda.FrameMeta) error {
	h.mu.Lock()
	uid := h.seqUID
	key := indexKey(h.labels, ev.Index)
	h.mu.Unlock()
	if uid == "" {
		return fmt.Errorf("frame received before sequence reset")
	}

	return h.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(uid))
		if b == nil {
			return fmt.Errorf("missing bucket for sequence %s", uid)
		}
		return b.Bucket([]byte(boltBucketFrames)).Put([]byte(key), marshalFrame(frame))
	})
}

func (h *BoltHandler) SequenceFinished(seq *mda.Sequence) error {
	return h.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(seq.UID))
		if b == nil {
			return nil
		}
		var meta boltSequenceMeta
		if raw := b.Get([]byte(boltKeyMeta)); raw != nil {
			if err := json.Unmarshal(raw, &meta); err != nil {
				return err
			}
		}
		meta.Finished = true
		raw, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return b.Put([]byte(boltKeyMeta), raw)
	})
}

// Store reads the current sequence's frames back into an Array. It returns
// nil until Reset has been called.
func (h *BoltHandler) Store() *Array {
	h.mu.Lock()
	uid := h.seqUID
	labels := h.labels
	dims := h.dims
	h.mu.Unlock()
	if uid == "" {
		return nil
	}

	arr := newArray(labels, dims)
	h.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(uid))
		if b == nil {
			return nil
		}
		c := b.Bucket([]byte(boltBucketFrames)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			frame, ok := unmarshalFrame(v)
			if !ok {
				continue
			}
			arr.put(parseIndexKey(string(k)), frame)
		}
		return nil
	})
	return arr
}

// marshalFrame encodes a frame as two little-endian uint32 dimensions
// followed by the raw little-endian pixel data.
func marshalFrame(frame mmcore.Frame) []byte {
	buf := make([]byte, 8+2*len(frame.Pix))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(frame.Width))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(frame.Height))
	for i, p := range frame.Pix {
		binary.LittleEndian.PutUint16(buf[8+2*i:], p)
	}
	return buf
}

func unmarshalFrame(buf []byte) (mmcore.Frame, bool) {
	if len(buf) < 8 {
		return mmcore.Frame{}, false
	}
	width := int(binary.LittleEndian.Uint32(buf[0:4]))
	height := int(binary.LittleEndian.Uint32(buf[4:8]))
	if len(buf) != 8+2*width*height {
		return mmcore.Frame{}, false
	}
	pix := make([]uint16, width*height)
	for i := range pix {
		pix[i] = binary.LittleEndian.Uint16(buf[8+2*i:])
	}
	return mmcore.Frame{Width: width, Height: height, Pix: pix}, true
}
