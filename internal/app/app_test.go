package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mmstudio/internal/config"
	"mmstudio/internal/logging"
	"mmstudio/internal/mda"
	"mmstudio/internal/mmcore"
	"mmstudio/internal/runtime"
	"mmstudio/internal/store"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "system.cfg")
	cfg := "Device,Camera,DemoCamera,Camera,Simulated camera\n" +
		"Device,ZStage,DemoCamera,Stage,Simulated Z drive\n"
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStudioStartLoadsConfiguration(t *testing.T) {
	path := writeConfig(t)
	s := New(context.Background(), config.Options{ConfigPath: path}, testLogger(t), nil)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Shutdown(2 * time.Second)

	if got := s.Core.SystemConfigurationFile(); got != path {
		t.Errorf("configuration file = %q, want %q", got, path)
	}
	if devices := s.Core.LoadedDevicesOfType(mmcore.CameraDevice); len(devices) != 1 {
		t.Errorf("cameras = %v", devices)
	}
}

func TestStudioStartRejectsMissingConfig(t *testing.T) {
	opts := config.Options{ConfigPath: filepath.Join(t.TempDir(), "nope.cfg")}
	s := New(context.Background(), opts, testLogger(t), nil)
	defer s.Shutdown(2 * time.Second)
	if err := s.Start(); err == nil {
		t.Fatal("expected error for missing configuration file")
	}
}

func TestStudioAcquisitionRoundTrip(t *testing.T) {
	s := New(context.Background(), config.Options{}, testLogger(t), nil)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Shutdown(2 * time.Second)

	seq := mda.NewSequence(mda.Axis{Label: "t", Size: 3})
	var mu sync.Mutex
	var progress []int
	exit := make(chan error, 1)
	err := s.Acq.Start(runtime.AcquireOptions{Sequence: seq}, s.Logger, runtime.StartHooks{
		OnFrame: func(done, total int) {
			mu.Lock()
			progress = append(progress, done)
			mu.Unlock()
			if total != 3 {
				t.Errorf("total = %d, want 3", total)
			}
		},
		OnExit: func(err error) { exit <- err },
	})
	if err != nil {
		t.Fatalf("acquisition start: %v", err)
	}

	select {
	case runErr := <-exit:
		if runErr != nil {
			t.Fatalf("acquisition: %v", runErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("acquisition did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(progress) != 3 || progress[2] != 3 {
		t.Errorf("progress = %v", progress)
	}

	handlers := s.Runner.OutputHandlers()
	if len(handlers) != 1 {
		t.Fatalf("handlers = %d", len(handlers))
	}
	mem, ok := handlers[0].(*store.MemoryHandler)
	if !ok {
		t.Fatalf("handler type %T, want memory", handlers[0])
	}
	if mem.Store().Len() != 3 {
		t.Errorf("stored frames = %d, want 3", mem.Store().Len())
	}
}

func TestStudioDetectCRISPFallsBackToSim(t *testing.T) {
	s := New(context.Background(), config.Options{SimCRISP: true}, testLogger(t), nil)
	defer s.Shutdown(2 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	dev, err := s.DetectCRISP(ctx)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if dev.DeviceName() != "CRISP (simulated)" {
		t.Errorf("device = %q, want simulated fallback", dev.DeviceName())
	}
}

func TestStudioDetectCRISPReportsFailure(t *testing.T) {
	s := New(context.Background(), config.Options{}, testLogger(t), nil)
	defer s.Shutdown(2 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	dev, err := s.DetectCRISP(ctx)
	if err == nil {
		t.Fatal("expected a detection error without hardware or sim-crisp")
	}
	if dev != nil {
		t.Errorf("device = %v, want nil on detection failure", dev)
	}
}
