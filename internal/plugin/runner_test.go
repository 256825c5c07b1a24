package plugin

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/gesturecast/internal/action"
	"github.com/ayusman/gesturecast/internal/dispatch"
	"github.com/ayusman/gesturecast/internal/gesture"
)

// installLogger installs a plugin that appends each request to log.txt in
// its own directory.
func installLogger(t *testing.T, root string, actions []string) string {
	t.Helper()

	dir := writeManifest(t, root, "logger", Manifest{
		Name:       "logger",
		Executable: "run.sh",
		Actions:    actions,
	})
	script := `#!/bin/sh
cat >> log.txt
echo >> log.txt
echo '{"success":true}'
`
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return filepath.Join(dir, "log.txt")
}

func TestRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	root := t.TempDir()
	logPath := installLogger(t, root, []string{string(action.DropIce)})

	manager := NewManager(root, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	runner := NewRunner(manager, NewExecutor(5*time.Second), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Run(ctx)

	// Only action events for a declared action reach the plugin.
	runner.Broadcast(dispatch.Event{Kind: dispatch.KindGesture, Gesture: gesture.Ice, Source: "A"})
	runner.Broadcast(dispatch.Event{Kind: dispatch.KindAction, Gesture: gesture.Fist, Action: action.Reset, Source: "A"})
	runner.Broadcast(dispatch.Event{Kind: dispatch.KindAction, Gesture: gesture.Ice, Action: action.DropIce, Source: "A"})

	deadline := time.Now().Add(5 * time.Second)
	for {
		data, _ := os.ReadFile(logPath)
		if len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) != 1 {
				t.Fatalf("expected 1 request, got %d: %s", len(lines), data)
			}

			var req Request
			if err := json.Unmarshal([]byte(lines[0]), &req); err != nil {
				t.Fatalf("bad request %q: %v", lines[0], err)
			}
			if req.Action != "drop_ice" || req.Gesture != "ice" || req.Source != "A" {
				t.Errorf("unexpected request %+v", req)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("plugin never ran")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRunner_BroadcastNeverBlocks(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "p", Manifest{Name: "p", Executable: "p", Actions: []string{"select"}})

	manager := NewManager(root, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	runner := NewRunner(manager, NewExecutor(time.Second), nil)

	for i := 0; i < runnerQueue+5; i++ {
		runner.Broadcast(dispatch.Event{Kind: dispatch.KindAction, Action: action.Select})
	}
	if len(runner.queue) != runnerQueue {
		t.Errorf("queue length = %d, want %d", len(runner.queue), runnerQueue)
	}
}
