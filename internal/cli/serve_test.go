package cli

import (
	"bytes"
	stdcontext "context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestServeStartsAndShutsDownCleanly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deskd.yaml")
	if err := os.WriteFile(path, []byte("listen: \"127.0.0.1:0\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"--config", path, "serve"})

	ctx, cancel := stdcontext.WithCancel(stdcontext.Background())
	done := make(chan error, 1)
	go func() {
		done <- root.ExecuteContext(ctx)
	}()

	// Give the server a moment to come up, then ask it to stop.
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v\nstderr: %s", err, errOut.String())
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not shut down")
	}

	if !strings.Contains(out.String(), "listening on") {
		t.Fatalf("missing startup banner in output:\n%s", out.String())
	}
}
