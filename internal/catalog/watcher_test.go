package catalog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "smartlists.csv")
	initial := "list_id,names,option_text\n1,Mood,Euthymic\n"
	if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var failures atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, c, path, slog.Default(), func(_ int, err error) {
			if err != nil {
				failures.Add(1)
			}
		})
	}()
	time.Sleep(100 * time.Millisecond)

	updated := initial + "2,Affect,Flat\n"
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		_, ok := c.LookupByID("2")
		return ok
	}, "catalog was not reloaded after file change")

	if err := os.WriteFile(path, []byte("list_id,names,option_text\nx,Bad,\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		return failures.Load() > 0
	}, "invalid file did not report a reload failure")
	if _, ok := c.LookupByID("2"); !ok {
		t.Error("invalid reload replaced the live index")
	}

	cancel()
	<-done
}
