package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"mmstudio/internal/mda"
)

const minCounterDigits = 3

// numberedStem splits a trailing _NNN counter (three or more digits) off a
// file stem.
var numberedStem = regexp.MustCompile(`^(.*?)(?:_(\d{3,}))?$`)

// HandlerForPath picks an output handler from a destination string. The
// literal "memory" (with optional trailing ":" or "/") selects the
// in-memory handler, a .bolt file selects the database handler, and an
// extensionless path that does not exist yet selects the image sequence
// writer.
func HandlerForPath(path string) (mda.FrameHandler, error) {
	trimmed := strings.ToLower(strings.TrimRight(strings.TrimRight(path, "/"), ":"))
	if trimmed == "memory" {
		return NewMemoryHandler(), nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(abs, ".bolt") {
		return NewBoltHandler(abs)
	}

	if filepath.Ext(abs) == "" {
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			return NewImageSequenceWriter(abs), nil
		}
	}

	return nil, fmt.Errorf("could not infer an output handler for path: %q", path)
}

// NextAvailablePath appends a numeric counter to the requested path so that
// it does not collide with existing files. The returned counter is always
// strictly greater than the highest counter already present for the same
// stem and extension. If the path is free and no numbered siblings exist,
// it is returned unchanged.
func NextAvailablePath(requested string) string {
	dir := filepath.Dir(requested)
	ext := filepath.Ext(requested)
	stem := strings.TrimSuffix(filepath.Base(requested), ext)

	digits := minCounterDigits
	currentMax := 0
	entries, _ := os.ReadDir(dir)
	for _, entry := range entries {
		name := entry.Name()
		if ext != "" && !strings.HasSuffix(name, ext) {
			continue
		}
		base := strings.TrimSuffix(name, ext)
		m := numberedStem.FindStringSubmatch(base)
		if m == nil || m[2] == "" || m[1] != stem {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if n > currentMax {
			currentMax = n
		}
		if len(m[2]) > digits {
			digits = len(m[2])
		}
	}

	if currentMax == 0 {
		if _, err := os.Stat(requested); os.IsNotExist(err) {
			return requested
		}
	}

	currentMax++
	// A counter already on the requested stem wins if it is higher.
	if m := numberedStem.FindStringSubmatch(stem); m != nil && m[2] != "" {
		stem = m[1]
		if n, err := strconv.Atoi(m[2]); err == nil && n > currentMax {
			currentMax = n
		}
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%0*d%s", stem, digits, currentMax, ext))
}
