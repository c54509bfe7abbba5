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

// Package objectstore is the Object Byte Store: it owns the on-disk bytes
// behind every Object row, independent of the Metadata Store (spec.md
// §4.C). The live copy of an object lives at base/bucket/name; once
// versioning demotes it, its bytes move to
// base/bucket/.versions/name/generation (spec.md §6 persisted state
// layout). Every write lands in a temp file, is fsynced, and is renamed
// into place so a crash mid-upload never leaves a half-written file
// visible under its final path.
package objectstore

import (
	"crypto/md5"
	"encoding/base64"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

const versionsDir = ".versions"

// Store roots every object's on-disk path under a single base directory.
type Store struct {
	baseDir string
}

func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, apierror.Wrap(apierror.Internal, err, "create object store base dir")
	}
	return &Store{baseDir: baseDir}, nil
}

// PendingWrite is a fsynced, not-yet-visible temp file plus the checksums
// computed from the single pass that wrote it. Callers place it under its
// final path with Commit only after the metadata transaction that will
// reference it is ready to proceed.
type PendingWrite struct {
	tempPath     string
	Size         int64
	MD5Base64    string
	CRC32CBase64 string
}

// WriteTemp sanitizes (bucket, name) and streams r through an MD5+CRC32C
// digest into a temp file in the bucket's directory -- guaranteeing the
// later rename is same-filesystem and therefore atomic (spec.md §4.C step
// 3). The file is not placed under any path callers can observe until
// Commit.
func (s *Store) WriteTemp(bucket, name string, r io.Reader) (PendingWrite, error) {
	bucketDir, err := s.bucketDir(bucket, name)
	if err != nil {
		return PendingWrite{}, err
	}
	if err := os.MkdirAll(bucketDir, 0o755); err != nil {
		return PendingWrite{}, apierror.Wrap(apierror.Internal, err, "create bucket directory")
	}

	tmpPath := filepath.Join(bucketDir, ".tmp-"+uuid.NewString())
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return PendingWrite{}, apierror.Wrap(apierror.Internal, err, "open temp file")
	}

	md5h := md5.New()
	crcH := crc32.New(crc32cTable)
	tee := io.MultiWriter(f, md5h, crcH)
	size, copyErr := io.Copy(tee, r)
	if copyErr != nil {
		f.Close()
		os.Remove(tmpPath)
		return PendingWrite{}, apierror.Wrap(apierror.Internal, copyErr, "write object body")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return PendingWrite{}, apierror.Wrap(apierror.Internal, err, "fsync object body")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return PendingWrite{}, apierror.Wrap(apierror.Internal, err, "close object body")
	}

	return PendingWrite{
		tempPath:     tmpPath,
		Size:         size,
		MD5Base64:    base64.StdEncoding.EncodeToString(md5h.Sum(nil)),
		CRC32CBase64: base64.StdEncoding.EncodeToString(crcH.Sum(nil)),
	}, nil
}

// Discard removes a PendingWrite's temp file without ever exposing it --
// the rollback path when the metadata transaction fails after the bytes
// already landed on disk (spec.md §7 propagation policy).
func (s *Store) Discard(p PendingWrite) {
	if p.tempPath != "" {
		os.Remove(p.tempPath)
	}
}

// CommitLive renames a PendingWrite over the live path for (bucket, name),
// making it visible atomically, and returns that path.
func (s *Store) CommitLive(bucket, name string, p PendingWrite) (string, error) {
	live, err := s.LivePath(bucket, name)
	if err != nil {
		s.Discard(p)
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(live), 0o755); err != nil {
		s.Discard(p)
		return "", apierror.Wrap(apierror.Internal, err, "create object directory")
	}
	if err := os.Rename(p.tempPath, live); err != nil {
		s.Discard(p)
		return "", apierror.Wrap(apierror.Internal, err, "rename object into place")
	}
	return live, nil
}

// PreserveVersion moves the current live file to its generation-addressed
// version path before a new upload overwrites the live path, so the prior
// content stays retrievable (spec.md §6, §4.G step 5). Returns the new
// path for that generation's Object row.
func (s *Store) PreserveVersion(bucket, name string, generation int64) (string, error) {
	live, err := s.LivePath(bucket, name)
	if err != nil {
		return "", err
	}
	versioned, err := s.VersionedPath(bucket, name, generation)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(versioned), 0o755); err != nil {
		return "", apierror.Wrap(apierror.Internal, err, "create version directory")
	}
	if err := os.Rename(live, versioned); err != nil {
		if os.IsNotExist(err) {
			return "", apierror.New(apierror.NotFound, "object body missing on disk")
		}
		return "", apierror.Wrap(apierror.Internal, err, "preserve object version")
	}
	return versioned, nil
}

// Open returns a reader over an object's stored bytes for download.
func (s *Store) Open(filePath string) (io.ReadCloser, error) {
	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apierror.New(apierror.NotFound, "object body missing on disk")
		}
		return nil, apierror.Wrap(apierror.Internal, err, "open object body")
	}
	return f, nil
}

// Delete best-effort removes an object's file; a missing file is not an
// error since metadata deletion is the operation of record (spec.md §4.C
// delete).
func (s *Store) Delete(filePath string) error {
	if filePath == "" {
		return nil
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return apierror.Wrap(apierror.Internal, err, "delete object body")
	}
	return nil
}

// LivePath returns base/bucket/name, the canonical path for an object's
// current (is_latest) version.
func (s *Store) LivePath(bucket, name string) (string, error) {
	bucketDir, err := s.bucketDir(bucket, name)
	if err != nil {
		return "", err
	}
	return s.withinBucket(bucketDir, filepath.FromSlash(name), name)
}

// VersionedPath returns base/bucket/.versions/name/generation, the path a
// prior version's bytes are moved to once it is no longer live.
func (s *Store) VersionedPath(bucket, name string, generation int64) (string, error) {
	bucketDir, err := s.bucketDir(bucket, name)
	if err != nil {
		return "", err
	}
	rel := filepath.Join(versionsDir, filepath.FromSlash(name), strconv.FormatInt(generation, 10))
	return s.withinBucket(bucketDir, rel, name)
}

func (s *Store) bucketDir(bucket, name string) (string, error) {
	if err := validateObjectName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, sanitizeSegment(bucket)), nil
}

// withinBucket joins bucketDir and rel, then verifies the canonicalized
// result still resolves inside bucketDir -- closing the escape routes a
// crafted object name could otherwise open (spec.md §4.C, invariant
// "path safety").
func (s *Store) withinBucket(bucketDir, rel, name string) (string, error) {
	clean := filepath.Clean(filepath.Join(bucketDir, rel))
	bucketClean := filepath.Clean(bucketDir)
	if clean != bucketClean && !strings.HasPrefix(clean, bucketClean+string(filepath.Separator)) {
		return "", apierror.New(apierror.PathTraversal, "object name %q escapes bucket directory", name)
	}
	return clean, nil
}

func validateObjectName(name string) error {
	if name == "" {
		return apierror.New(apierror.InvalidArgument, "object name must not be empty")
	}
	if strings.ContainsRune(name, 0) {
		return apierror.New(apierror.InvalidArgument, "object name must not contain NUL")
	}
	if strings.HasPrefix(name, "/") {
		return apierror.New(apierror.PathTraversal, "object name must not start with /")
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "." || seg == ".." {
			return apierror.New(apierror.PathTraversal, "object name must not contain . or .. segments")
		}
	}
	return nil
}

func sanitizeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == 0 {
			return '_'
		}
		return r
	}, s)
}

// FilePathRefs is implemented by callers that need to enumerate every file
// path a sweep should consider live, so Sweep can run independent of any
// particular metadata store implementation.
type FilePathRefs interface {
	LiveFilePaths() (map[string]struct{}, error)
}

// Sweep walks baseDir and removes any file older than minAge whose path is
// not present in the live set reported by refs; files whose name starts
// with ".tmp-" are never removed by it. It is a best-effort backstop
// for files orphaned by a crash between a successful rename and the
// metadata transaction that should have referenced them (spec.md §4.C
// orphan sweep, §9 "File-then-DB ordering").
func (s *Store) Sweep(refs FilePathRefs, minAge time.Duration, now time.Time) (removed int, err error) {
	live, err := refs.LiveFilePaths()
	if err != nil {
		return 0, err
	}
	walkErr := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasPrefix(filepath.Base(path), ".tmp-") {
			return nil
		}
		if now.Sub(info.ModTime()) < minAge {
			return nil
		}
		if _, ok := live[path]; ok {
			return nil
		}
		if rmErr := os.Remove(path); rmErr == nil {
			removed++
		}
		return nil
	})
	if walkErr != nil {
		return removed, apierror.Wrap(apierror.Internal, walkErr, "sweep object store")
	}
	return removed, nil
}
