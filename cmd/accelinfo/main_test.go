package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/accel"
	"github.com/gogpu/accel/config"
)

func TestRunHeadless(t *testing.T) {
	var buf bytes.Buffer
	opts := config.Default()
	opts.Display.ID = 3

	if err := run(&buf, opts, true); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Config[dev=3,pixfmt=0]", "max texture:", "FBObject:", "flip strategy: supported"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestRunWithoutDevice(t *testing.T) {
	var buf bytes.Buffer
	err := run(&buf, config.Default(), false)
	if !errors.Is(err, accel.ErrBackendUnavailable) {
		t.Errorf("run error = %v, want ErrBackendUnavailable", err)
	}
}

// chanWriter sends each write to a channel, dropping it when the channel
// is full.
type chanWriter chan string

func (c chanWriter) Write(p []byte) (int, error) {
	select {
	case c <- string(p):
	default:
	}
	return len(p), nil
}

func TestWatchAndReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accel.toml")
	if err := os.WriteFile(path, []byte("[display]\nid = 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chanWriter, 256)
	override := func(o config.Options) config.Options {
		o.Display.PixelFormat = 9
		return o
	}
	done := make(chan error, 1)
	go func() { done <- watchAndReport(ctx, out, path, true, override) }()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
loop:
	for {
		select {
		case line := <-out:
			if strings.Contains(line, "Config[dev=5,pixfmt=9]") {
				break loop
			}
		case <-tick.C:
			if err := os.WriteFile(path, []byte("[display]\nid = 5\n"), 0o600); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("no report after the options file changed")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("watchAndReport: %v", err)
	}
}
