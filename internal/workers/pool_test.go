package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mmstudio/internal/logging"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

func TestPoolDeliversResultThenFinished(t *testing.T) {
	pool := NewPool(2, nil, testLogger(t))

	var mu sync.Mutex
	var order []string
	pool.Submit(context.Background(), "ok", func(ctx context.Context) (any, error) {
		return 42, nil
	}, Callbacks{
		OnResult: func(result any) {
			mu.Lock()
			defer mu.Unlock()
			if result != 42 {
				t.Errorf("result = %v, want 42", result)
			}
			order = append(order, "result")
		},
		OnError:    func(err error) { t.Errorf("unexpected error: %v", err) },
		OnFinished: func() { mu.Lock(); order = append(order, "finished"); mu.Unlock() },
	})

	if !pool.Wait(2 * time.Second) {
		t.Fatal("pool did not drain")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "result" || order[1] != "finished" {
		t.Errorf("callback order = %v", order)
	}
}

func TestPoolDeliversError(t *testing.T) {
	pool := NewPool(1, nil, testLogger(t))
	boom := errors.New("boom")

	var mu sync.Mutex
	var got error
	resultCalled := false
	pool.Submit(context.Background(), "fail", func(ctx context.Context) (any, error) {
		return nil, boom
	}, Callbacks{
		OnResult: func(any) { resultCalled = true },
		OnError:  func(err error) { mu.Lock(); got = err; mu.Unlock() },
	})

	if !pool.Wait(2 * time.Second) {
		t.Fatal("pool did not drain")
	}
	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(got, boom) {
		t.Errorf("error = %v, want boom", got)
	}
	if resultCalled {
		t.Error("OnResult called alongside OnError")
	}
}

func TestPoolCanceledContextSkipsTask(t *testing.T) {
	pool := NewPool(1, nil, testLogger(t))

	// Saturate the pool so the next Submit has to wait on the semaphore.
	release := make(chan struct{})
	pool.Submit(context.Background(), "block", func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	}, Callbacks{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	var gotErr error
	pool.Submit(ctx, "never", func(ctx context.Context) (any, error) {
		ran = true
		return nil, nil
	}, Callbacks{OnError: func(err error) { gotErr = err }})

	close(release)
	if !pool.Wait(2 * time.Second) {
		t.Fatal("pool did not drain")
	}
	if ran {
		t.Error("task ran despite canceled context")
	}
	if !errors.Is(gotErr, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", gotErr)
	}
}

func TestPoolDispatcherMarshalsCallbacks(t *testing.T) {
	var mu sync.Mutex
	var dispatched []func()
	dispatch := func(fn func()) {
		mu.Lock()
		dispatched = append(dispatched, fn)
		mu.Unlock()
	}

	pool := NewPool(1, dispatch, testLogger(t))
	done := false
	pool.Submit(context.Background(), "queued", func(ctx context.Context) (any, error) {
		return nil, nil
	}, Callbacks{OnFinished: func() { done = true }})

	if !pool.Wait(2 * time.Second) {
		t.Fatal("pool did not drain")
	}
	if done {
		t.Fatal("callback ran before the dispatcher drained")
	}
	mu.Lock()
	fns := dispatched
	mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	if !done {
		t.Error("dispatched callback never ran")
	}
}
