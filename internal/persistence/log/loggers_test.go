package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelbot.ai/internal/agent/supervisor"
)

func readJSONL(t *testing.T, path string) []supervisor.JournalEntry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var out []supervisor.JournalEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e supervisor.JournalEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestJournalLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewJournalLogger(dir)
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	l.w.now = func() time.Time { return at }

	if err := l.Record(supervisor.JournalEntry{Time: at, Epoch: 1, Kind: supervisor.KindConnecting}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.Record(supervisor.JournalEntry{Time: at, Epoch: 1, Kind: supervisor.KindDeath, Pos: &[3]float64{1, 64, -3}}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got := readJSONL(t, filepath.Join(dir, "journal", "journal-2026-03-01-12.jsonl.zst"))
	if len(got) != 2 || got[0].Kind != "connecting" || got[1].Pos == nil || got[1].Pos[2] != -3 {
		t.Fatalf("unexpected entries %+v", got)
	}
}

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "journal")
	at := time.Date(2026, 3, 1, 12, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return at }
	if err := w.Write(supervisor.JournalEntry{Kind: "a"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	at = at.Add(2 * time.Minute)
	if err := w.Write(supervisor.JournalEntry{Kind: "b"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	if len(files) != 2 {
		t.Fatalf("expected two hourly files, got %v", files)
	}
	if got := readJSONL(t, filepath.Join(dir, "journal-2026-03-01-13.jsonl.zst")); len(got) != 1 || got[0].Kind != "b" {
		t.Fatalf("unexpected second file %+v", got)
	}
}

func TestWriterUsesUTCHourAndAppends(t *testing.T) {
	dir := t.TempDir()
	ist := time.FixedZone("IST", 5*3600+1800)
	at := time.Date(2026, 3, 1, 18, 29, 59, 0, ist)

	first := NewJSONLZstdWriter(dir, "journal")
	first.now = func() time.Time { return at }
	if err := first.Write(supervisor.JournalEntry{Kind: "a"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := NewJSONLZstdWriter(dir, "journal")
	second.now = func() time.Time { return at.Add(time.Second / 2) }
	if err := second.Write(supervisor.JournalEntry{Kind: "b"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := second.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got := readJSONL(t, filepath.Join(dir, "journal-2026-03-01-12.jsonl.zst"))
	if len(got) != 2 || got[0].Kind != "a" || got[1].Kind != "b" {
		t.Fatalf("expected both entries in the 12:00 UTC file, got %+v", got)
	}
}
