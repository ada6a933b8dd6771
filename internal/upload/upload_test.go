package upload

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/claude/liftlog/internal/ingest"
)

type fakeSender struct {
	sent [][]byte
	err  error
}

func (f *fakeSender) SendExport(_ context.Context, csv []byte) (*ingest.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, csv)
	return &ingest.Result{LogsInserted: 1, SetsInserted: 5, WarmupsSkipped: 2}, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func openState(t *testing.T) *StateDB {
	t.Helper()
	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { state.Close() })
	return state
}

// TestUploaderSkipsUnchanged verifies that only new or changed exports are
// sent on a second run and that non-CSV files are ignored.
func TestUploaderSkipsUnchanged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2026-02.csv"), "feb")
	writeFile(t, filepath.Join(root, "nested", "2026-03.CSV"), "mar")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignore me")

	state := openState(t)
	log := slog.New(slog.DiscardHandler)
	sender := &fakeSender{}

	stats, err := New(sender, state, root, false, log).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesTotal != 2 || stats.FilesUploaded != 2 || stats.LogsInserted != 2 || stats.WarmupsSkipped != 4 {
		t.Errorf("first run stats = %+v", stats)
	}

	writeFile(t, filepath.Join(root, "2026-02.csv"), "feb, corrected")
	stats, err = New(sender, state, root, false, log).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesUploaded != 1 || stats.FilesSkipped != 1 {
		t.Errorf("second run stats = %+v, want 1 uploaded / 1 skipped", stats)
	}
	if len(sender.sent) != 3 || string(sender.sent[2]) != "feb, corrected" {
		t.Errorf("sent = %q", sender.sent)
	}
}

// TestUploaderDryRun verifies nothing is sent or recorded.
func TestUploaderDryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	writeFile(t, path, "data")
	state := openState(t)
	sender := &fakeSender{}

	stats, err := New(sender, state, path, true, slog.New(slog.DiscardHandler)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesTotal != 1 || stats.FilesUploaded != 0 || len(sender.sent) != 0 {
		t.Errorf("stats = %+v, sent = %d", stats, len(sender.sent))
	}
	if done, _ := state.IsUploaded("export.csv", HashBytes([]byte("data"))); done {
		t.Error("dry run recorded the export as uploaded")
	}
}

// TestUploaderSendFailure verifies a failed send is counted and not recorded.
func TestUploaderSendFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	writeFile(t, path, "data")
	state := openState(t)

	stats, err := New(&fakeSender{err: errors.New("boom")}, state, path, false, slog.New(slog.DiscardHandler)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesErrored != 1 || stats.FilesUploaded != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if done, _ := state.IsUploaded("export.csv", HashBytes([]byte("data"))); done {
		t.Error("failed export recorded as uploaded")
	}
}

// TestUploaderMissingRoot verifies a missing path is an error.
func TestUploaderMissingRoot(t *testing.T) {
	_, err := New(&fakeSender{}, openState(t), filepath.Join(t.TempDir(), "nope"), false, slog.New(slog.DiscardHandler)).Run(context.Background())
	if err == nil {
		t.Error("expected error for missing path")
	}
}
