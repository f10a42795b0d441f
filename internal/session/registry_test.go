package session

import "testing"

func TestRegistryIDsMonotonicAndNeverReused(t *testing.T) {
	reg := NewRegistry(0)

	first := reg.Create("echo one", "", "process", 0)
	second := reg.Create("echo two", "", "process", 0)
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("ids = %d, %d; want 1, 2", first.ID, second.ID)
	}

	reg.Remove(second.ID)
	third := reg.Create("echo three", "", "process", 0)
	if third.ID != 3 {
		t.Fatalf("id after removal = %d, want 3", third.ID)
	}
}

func TestRegistryListOrderedByID(t *testing.T) {
	reg := NewRegistry(0)
	for i := 0; i < 5; i++ {
		reg.Create("sleep 1", "", "process", 0)
	}

	list := reg.List()
	if len(list) != 5 {
		t.Fatalf("List() returned %d sessions, want 5", len(list))
	}
	for i, sess := range list {
		if want := int64(i + 1); sess.ID != want {
			t.Fatalf("List()[%d].ID = %d, want %d", i, sess.ID, want)
		}
	}
}

func TestRegistryPruneEvictsOldestTerminal(t *testing.T) {
	reg := NewRegistry(2)

	code := 0
	var running *Session
	for i := 0; i < 4; i++ {
		sess := reg.Create("true", "", "process", 0)
		if i == 1 {
			running = sess
			continue
		}
		sess.Finalize(StatusCompleted, &code)
	}

	reg.Prune()

	// Three terminal sessions, retention two: the oldest terminal one
	// (id 1) goes. The running session survives regardless of age.
	if _, ok := reg.Get(1); ok {
		t.Fatal("oldest terminal session survived prune")
	}
	if _, ok := reg.Get(running.ID); !ok {
		t.Fatal("running session was pruned")
	}
	if got := reg.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
}

func TestSessionFinalizeExactlyOnce(t *testing.T) {
	reg := NewRegistry(0)
	sess := reg.Create("sleep 5", "", "process", 0)

	code := 0
	if !sess.Finalize(StatusCompleted, &code) {
		t.Fatal("first Finalize returned false")
	}
	killed := -1
	if sess.Finalize(StatusTerminated, &killed) {
		t.Fatal("second Finalize returned true")
	}

	if got := sess.Status(); got != StatusCompleted {
		t.Fatalf("Status() = %q, want %q", got, StatusCompleted)
	}
	if got := sess.ExitCode(); got == nil || *got != 0 {
		t.Fatalf("ExitCode() = %v, want 0", got)
	}
	if !sess.Buffer().Closed() {
		t.Fatal("buffer not closed after Finalize")
	}
}

func TestSessionFinalizeRejectsNonTerminalStatus(t *testing.T) {
	reg := NewRegistry(0)
	sess := reg.Create("sleep 5", "", "process", 0)

	if sess.Finalize(StatusRunning, nil) {
		t.Fatal("Finalize accepted a non-terminal status")
	}
	if got := sess.Status(); got != StatusRunning {
		t.Fatalf("Status() = %q, want %q", got, StatusRunning)
	}
}

func TestSnapshotReportsOutputBytes(t *testing.T) {
	reg := NewRegistry(0)
	sess := reg.Create("echo hi", "bash", "process", 0)
	sess.Buffer().Append([]byte("hi\n"))

	info := sess.Snapshot()
	if info.ID != sess.ID || info.Status != StatusRunning {
		t.Fatalf("Snapshot() = %+v", info)
	}
	if info.OutputBytes != 3 {
		t.Fatalf("OutputBytes = %d, want 3", info.OutputBytes)
	}
	if info.Shell != "bash" || info.Runner != "process" {
		t.Fatalf("Snapshot shell/runner = %q/%q", info.Shell, info.Runner)
	}
}
