package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/deskd/internal/api"
	"github.com/example/deskd/internal/session"
)

func startSession(t *testing.T, eng *Engine, handle *fakeHandle) int64 {
	t.Helper()
	res, err := eng.Execute(context.Background(), api.ExecuteRequest{Command: "test command"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return res.SessionID
}

func TestReadOutputUnknownSession(t *testing.T) {
	eng := newTestEngine(&fakeSpawner{}, nil)
	_, err := eng.ReadOutput(context.Background(), api.ReadRequest{SessionID: 99})
	if !errors.Is(err, api.ErrSessionNotFound) {
		t.Fatalf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestReadOutputNegativeCursor(t *testing.T) {
	handle := newFakeHandle(1)
	eng := newTestEngine(&fakeSpawner{handles: []*fakeHandle{handle}}, nil)
	id := startSession(t, eng, handle)
	defer handle.finish(0)

	cursor := int64(-1)
	_, err := eng.ReadOutput(context.Background(), api.ReadRequest{SessionID: id, Cursor: &cursor})
	if !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestReadOutputNonBlocking(t *testing.T) {
	handle := newFakeHandle(1)
	eng := newTestEngine(&fakeSpawner{handles: []*fakeHandle{handle}}, nil)
	id := startSession(t, eng, handle)

	handle.emit("line one\n")
	waitForOutput(t, eng, id, 1)

	res, err := eng.ReadOutput(context.Background(), api.ReadRequest{SessionID: id})
	if err != nil {
		t.Fatalf("ReadOutput: %v", err)
	}
	if res.NewOutput != "line one\n" {
		t.Fatalf("NewOutput = %q, want %q", res.NewOutput, "line one\n")
	}
	if res.TimedOut {
		t.Fatal("non-blocking read reported TimedOut")
	}
	if res.Completed {
		t.Fatal("running session reported Completed")
	}

	// Re-reading from the returned cursor yields nothing new.
	again, err := eng.ReadOutput(context.Background(), api.ReadRequest{SessionID: id, Cursor: &res.Cursor})
	if err != nil {
		t.Fatalf("ReadOutput: %v", err)
	}
	if again.NewOutput != "" {
		t.Fatalf("second read NewOutput = %q, want empty", again.NewOutput)
	}

	handle.finish(0)
}

func TestReadOutputBlocksUntilAppend(t *testing.T) {
	handle := newFakeHandle(1)
	eng := newTestEngine(&fakeSpawner{handles: []*fakeHandle{handle}}, nil)
	id := startSession(t, eng, handle)

	go func() {
		time.Sleep(30 * time.Millisecond)
		handle.emit("late\n")
	}()

	res, err := eng.ReadOutput(context.Background(), api.ReadRequest{
		SessionID: id,
		Timeout:   5 * time.Second,
	})
	if err != nil {
		t.Fatalf("ReadOutput: %v", err)
	}
	if res.NewOutput != "late\n" {
		t.Fatalf("NewOutput = %q, want %q", res.NewOutput, "late\n")
	}
	if res.TimedOut {
		t.Fatal("read that saw data reported TimedOut")
	}

	handle.finish(0)
}

func TestReadOutputTimesOutWithoutNews(t *testing.T) {
	handle := newFakeHandle(1)
	eng := newTestEngine(&fakeSpawner{handles: []*fakeHandle{handle}}, nil)
	id := startSession(t, eng, handle)
	defer handle.finish(0)

	start := time.Now()
	res, err := eng.ReadOutput(context.Background(), api.ReadRequest{
		SessionID: id,
		Timeout:   50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("ReadOutput: %v", err)
	}
	if !res.TimedOut {
		t.Fatal("expected TimedOut")
	}
	if res.NewOutput != "" {
		t.Fatalf("NewOutput = %q, want empty", res.NewOutput)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("read returned after %v, want at least the timeout", elapsed)
	}
}

func TestReadOutputCompletedSessionIdempotent(t *testing.T) {
	handle := newFakeHandle(1)
	eng := newTestEngine(&fakeSpawner{handles: []*fakeHandle{handle}}, nil)
	id := startSession(t, eng, handle)

	handle.emit("done\n")
	handle.finish(3)
	waitForStatus(t, eng, id, session.StatusCompleted)

	for i := 0; i < 3; i++ {
		res, err := eng.ReadOutput(context.Background(), api.ReadRequest{
			SessionID: id,
			Timeout:   time.Second,
		})
		if err != nil {
			t.Fatalf("ReadOutput #%d: %v", i, err)
		}
		if !res.Completed {
			t.Fatalf("ReadOutput #%d: not completed", i)
		}
		if res.ExitCode == nil || *res.ExitCode != 3 {
			t.Fatalf("ReadOutput #%d: ExitCode = %v, want 3", i, res.ExitCode)
		}
		if res.FullOutput != "done\n" {
			t.Fatalf("ReadOutput #%d: FullOutput = %q", i, res.FullOutput)
		}
		// A terminal session never blocks the reader, even with a
		// generous timeout and no new bytes.
		if res.TimedOut {
			t.Fatalf("ReadOutput #%d: reported TimedOut on terminal session", i)
		}
	}
}

func TestReadOutputIndependentPollers(t *testing.T) {
	handle := newFakeHandle(1)
	eng := newTestEngine(&fakeSpawner{handles: []*fakeHandle{handle}}, nil)
	id := startSession(t, eng, handle)

	handle.emit("first ")
	waitForOutput(t, eng, id, 1)

	a, err := eng.ReadOutput(context.Background(), api.ReadRequest{SessionID: id})
	if err != nil {
		t.Fatalf("ReadOutput A: %v", err)
	}

	handle.emit("second")
	waitForOutput(t, eng, id, a.Cursor+1)

	a2, err := eng.ReadOutput(context.Background(), api.ReadRequest{SessionID: id, Cursor: &a.Cursor})
	if err != nil {
		t.Fatalf("ReadOutput A2: %v", err)
	}
	if a2.NewOutput != "second" {
		t.Fatalf("poller A saw %q, want %q", a2.NewOutput, "second")
	}

	// Poller B starts from zero and replays everything.
	b, err := eng.ReadOutput(context.Background(), api.ReadRequest{SessionID: id})
	if err != nil {
		t.Fatalf("ReadOutput B: %v", err)
	}
	if b.NewOutput != "first second" {
		t.Fatalf("poller B saw %q, want %q", b.NewOutput, "first second")
	}

	handle.finish(0)
}

// waitForOutput polls until the session buffer holds at least n bytes.
func waitForOutput(t *testing.T, eng *Engine, id int64, n int64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sess, ok := eng.Sessions().Get(id)
		if !ok {
			t.Fatalf("session %d disappeared", id)
		}
		if sess.Buffer().Size() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session %d never buffered %d bytes", id, n)
}
