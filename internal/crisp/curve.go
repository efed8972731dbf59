package crisp

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"mmstudio/internal/workers"
)

// CurvePoint is one sample of the focus error curve.
type CurvePoint struct {
	Z      float64
	Signal float64
}

// ParseCurveData decodes the whitespace-separated z/signal pairs the
// controller reports. Malformed lines are skipped.
func ParseCurveData(raw string) []CurvePoint {
	var points []CurvePoint
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		z, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			continue
		}
		signal, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		points = append(points, CurvePoint{Z: z, Signal: signal})
	}
	return points
}

// CollectFocusCurve reads the curve off the device on the worker pool.
// Reading blocks on dozens of property round trips, which is why it never
// runs on the UI thread; the callbacks are dispatched back through the
// pool's dispatcher.
func CollectFocusCurve(ctx context.Context, pool *workers.Pool, dev Device, cb workers.Callbacks) {
	pool.Submit(ctx, "crisp-focus-curve", func(ctx context.Context) (any, error) {
		raw, err := dev.FocusCurveData()
		if err != nil {
			return nil, err
		}
		points := ParseCurveData(raw)
		if len(points) == 0 {
			return nil, errors.New("focus curve scan returned no data")
		}
		return points, nil
	}, cb)
}
