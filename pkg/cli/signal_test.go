package cli

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer written by the signal goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSignalContext_CancelOnInterrupt(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	var out syncBuffer
	ctx, cancel := signalContextWithNotifier(context.Background(), 5*time.Second, sigChan, nil, &out)
	defer cancel()

	sigChan <- os.Interrupt

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled after signal")
	}
}

func TestSignalContext_ParentCancel(t *testing.T) {
	parent, parentCancel := context.WithCancel(context.Background())
	ctx, cancel := signalContextWithNotifier(parent, 5*time.Second, make(chan os.Signal, 1), nil, &syncBuffer{})
	defer cancel()

	parentCancel()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context did not follow its parent")
	}
}

func TestSignalContext_SecondSignalExits(t *testing.T) {
	sigChan := make(chan os.Signal, 2)
	var exitCode atomic.Int32
	exitCode.Store(-1)

	ctx, cancel := signalContextWithNotifier(context.Background(), 5*time.Second, sigChan,
		func(code int) { exitCode.Store(int32(code)) }, &syncBuffer{})
	defer cancel()

	sigChan <- os.Interrupt
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled after first signal")
	}

	sigChan <- os.Interrupt

	deadline := time.After(2 * time.Second)
	for {
		if exitCode.Load() == 130 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("exitFn was not called after second signal")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestSignalContext_GracePeriodExpires(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	var exitCalled atomic.Bool
	var out syncBuffer

	_, cancel := signalContextWithNotifier(context.Background(), 50*time.Millisecond, sigChan,
		func(int) { exitCalled.Store(true) }, &out)
	defer cancel()

	sigChan <- os.Interrupt
	time.Sleep(200 * time.Millisecond)

	if exitCalled.Load() {
		t.Error("exitFn should not be called when grace period expires without second signal")
	}
	if !strings.Contains(out.String(), "Interrupt received") {
		t.Errorf("missing interrupt notice, got %q", out.String())
	}
}

func TestSignalContext_NoSignal(t *testing.T) {
	ctx, cancel := signalContextWithNotifier(context.Background(), 5*time.Second, make(chan os.Signal, 1), nil, &syncBuffer{})
	defer cancel()

	select {
	case <-ctx.Done():
		t.Fatal("context should not be cancelled without signal or cancel")
	default:
	}
}
