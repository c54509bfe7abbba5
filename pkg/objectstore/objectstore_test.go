// Copyright 2025 AUTHORS
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package objectstore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteTempCommitRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	body := []byte("hello object")
	pw, err := s.WriteTemp("bucket1", "dir/obj.txt", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("WriteTemp: %v", err)
	}
	if pw.Size != int64(len(body)) {
		t.Errorf("Size = %d, want %d", pw.Size, len(body))
	}
	live, err := s.CommitLive("bucket1", "dir/obj.txt", pw)
	if err != nil {
		t.Fatalf("CommitLive: %v", err)
	}
	r, err := s.Open(live)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	got := make([]byte, len(body))
	if _, err := r.Read(got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("round-tripped body = %q, want %q", got, body)
	}
}

func TestWriteTempRejectsPathEscape(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.WriteTemp("bucket1", "../../etc/passwd", bytes.NewReader(nil)); err == nil {
		t.Error("expected an error for a path-escaping object name")
	}
}

type fakeRefs map[string]struct{}

func (f fakeRefs) LiveFilePaths() (map[string]struct{}, error) { return f, nil }

func TestSweepRemovesOnlyOldUnreferencedFiles(t *testing.T) {
	base := t.TempDir()
	s, err := New(base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	live := filepath.Join(base, "bucket1", "live.txt")
	orphanOld := filepath.Join(base, "bucket1", "orphan-old.txt")
	orphanNew := filepath.Join(base, "bucket1", "orphan-new.txt")
	if err := os.MkdirAll(filepath.Dir(live), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, p := range []string{live, orphanOld, orphanNew} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	now := time.Now()
	old := now.Add(-2 * time.Hour)
	if err := os.Chtimes(live, old, old); err != nil {
		t.Fatalf("chtimes live: %v", err)
	}
	if err := os.Chtimes(orphanOld, old, old); err != nil {
		t.Fatalf("chtimes orphanOld: %v", err)
	}
	// orphanNew keeps its fresh mtime.

	refs := fakeRefs{live: {}}
	removed, err := s.Sweep(refs, time.Hour, now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(orphanOld); !os.IsNotExist(err) {
		t.Error("old orphan file should have been removed")
	}
	if _, err := os.Stat(live); err != nil {
		t.Error("live file must survive the sweep even though it is old")
	}
	if _, err := os.Stat(orphanNew); err != nil {
		t.Error("fresh orphan file must survive the sweep until it ages past minAge")
	}
}

func TestDeleteIsNoopOnMissingFile(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Delete(filepath.Join(s.baseDir, "nope.txt")); err != nil {
		t.Errorf("Delete on missing file should be a no-op, got: %v", err)
	}
	if err := s.Delete(""); err != nil {
		t.Errorf("Delete(\"\") should be a no-op, got: %v", err)
	}
}
