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

package store

import (
	"strconv"

	"github.com/tidwall/buntdb"

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
)

// PeekLatestGeneration reports the current live generation of (bucket,
// name) within tx, without decoding the full row -- used by callers that
// must relocate on-disk bytes (the Object Byte Store) before the metadata
// write that will reference the new location.
func PeekLatestGeneration(tx *buntdb.Tx, bucket, name string) (generation int64, exists bool, err error) {
	raw, getErr := tx.Get(objectLatestKey(bucket, name))
	if getErr == buntdb.ErrNotFound {
		return 0, false, nil
	}
	if getErr != nil {
		return 0, false, apierror.Wrap(apierror.Internal, getErr, "get latest pointer")
	}
	gen, convErr := strconv.ParseInt(raw, 10, 64)
	if convErr != nil {
		return 0, false, apierror.Wrap(apierror.Internal, convErr, "parse generation pointer")
	}
	return gen, true, nil
}

// UpsertObjectVersion commits a new version of (bucket, name). Must be
// called from inside WithObjectLock so the read-modify-write of the
// "current generation" pointer is atomic with respect to other writers of
// the same key (spec.md §4.G step 4). newMeta.FilePath must already point
// at where the Object Byte Store placed the new bytes; when versioning is
// enabled and a prior version exists, relocatedOldFilePath must be where
// the caller already moved the prior version's bytes (spec.md §6 -- prior
// versions live under .versions/name/generation). The store package never
// touches the filesystem itself; file placement is the caller's job.
func (s *Store) UpsertObjectVersion(tx *buntdb.Tx, versioningEnabled bool, newMeta Object, relocatedOldFilePath string) (final Object, err error) {
	latestKey := objectLatestKey(newMeta.Bucket, newMeta.Name)
	raw, getErr := tx.Get(latestKey)
	if getErr != nil && getErr != buntdb.ErrNotFound {
		return Object{}, apierror.Wrap(apierror.Internal, getErr, "get %s", latestKey)
	}

	if getErr == buntdb.ErrNotFound {
		newMeta.Generation = 1
		newMeta.Metageneration = 1
		newMeta.IsLatest = true
		newMeta.Deleted = false
		if err := s.putObjectRow(tx, newMeta); err != nil {
			return Object{}, err
		}
		if err := s.setLatestPointer(tx, newMeta); err != nil {
			return Object{}, err
		}
		return newMeta, nil
	}

	oldGen, convErr := strconv.ParseInt(raw, 10, 64)
	if convErr != nil {
		return Object{}, apierror.Wrap(apierror.Internal, convErr, "parse generation pointer %s", latestKey)
	}
	var old Object
	if err := get(tx, objectGenKey(newMeta.Bucket, newMeta.Name, oldGen), &old); err != nil {
		return Object{}, err
	}

	newMeta.Generation = oldGen + 1
	newMeta.Metageneration = 1
	newMeta.IsLatest = true
	newMeta.Deleted = false

	if versioningEnabled {
		old.IsLatest = false
		old.FilePath = relocatedOldFilePath
		if err := s.putObjectRow(tx, old); err != nil {
			return Object{}, err
		}
	} else {
		if err := delIfExists(tx, objectGenKey(old.Bucket, old.Name, old.Generation)); err != nil {
			return Object{}, err
		}
	}

	if err := s.putObjectRow(tx, newMeta); err != nil {
		return Object{}, err
	}
	if err := s.setLatestPointer(tx, newMeta); err != nil {
		return Object{}, err
	}
	return newMeta, nil
}

func (s *Store) putObjectRow(tx *buntdb.Tx, o Object) error {
	return set(tx, objectGenKey(o.Bucket, o.Name, o.Generation), o)
}

func (s *Store) setLatestPointer(tx *buntdb.Tx, o Object) error {
	key := objectLatestKey(o.Bucket, o.Name)
	if _, _, err := tx.Set(key, strconv.FormatInt(o.Generation, 10), nil); err != nil {
		return apierror.Wrap(apierror.Internal, err, "set %s", key)
	}
	s.indexPut(o.Bucket, o.Name)
	return nil
}

// GetObjectLatest returns the current live version of (bucket, name).
func (s *Store) GetObjectLatest(bucket, name string) (Object, error) {
	var obj Object
	err := s.view(func(tx *buntdb.Tx) error {
		raw, getErr := tx.Get(objectLatestKey(bucket, name))
		if getErr == buntdb.ErrNotFound {
			return notFound("object %s/%s", bucket, name)
		}
		if getErr != nil {
			return apierror.Wrap(apierror.Internal, getErr, "get latest pointer")
		}
		gen, convErr := strconv.ParseInt(raw, 10, 64)
		if convErr != nil {
			return apierror.Wrap(apierror.Internal, convErr, "parse generation pointer")
		}
		return get(tx, objectGenKey(bucket, name, gen), &obj)
	})
	return obj, err
}

func (s *Store) GetObjectVersion(bucket, name string, generation int64) (Object, error) {
	var obj Object
	err := s.view(func(tx *buntdb.Tx) error {
		return get(tx, objectGenKey(bucket, name, generation), &obj)
	})
	return obj, err
}

// ListObjectsByBucketPrefix lists either just the live objects whose name
// has the given prefix, or every version of them when includeVersions is
// set (GET .../o?versions=true).
func (s *Store) ListObjectsByBucketPrefix(bucket, prefix string, includeVersions bool) ([]Object, error) {
	names := s.indexPrefix(bucket, prefix)
	var out []Object
	err := s.view(func(tx *buntdb.Tx) error {
		for _, name := range names {
			if includeVersions {
				if err := tx.AscendKeys(objectNamePrefix(bucket, name)+"*", func(key, value string) bool {
					var o Object
					if decodeInto(value, &o) == nil {
						out = append(out, o)
					}
					return true
				}); err != nil {
					return err
				}
				continue
			}
			raw, getErr := tx.Get(objectLatestKey(bucket, name))
			if getErr != nil {
				continue
			}
			gen, convErr := strconv.ParseInt(raw, 10, 64)
			if convErr != nil {
				continue
			}
			var o Object
			if getErr := get(tx, objectGenKey(bucket, name, gen), &o); getErr == nil {
				out = append(out, o)
			}
		}
		return nil
	})
	return out, err
}

// DeleteObjectLogical implements spec.md §4.G Delete: hard-delete when
// versioning is disabled (returning the file path to unlink), or mark the
// current version deleted and drop the latest pointer when enabled
// (keeping prior versions addressable by generation).
func (s *Store) DeleteObjectLogical(bucket, name string, versioningEnabled bool) (filePathToUnlink string, err error) {
	err = s.update(func(tx *buntdb.Tx) error {
		raw, getErr := tx.Get(objectLatestKey(bucket, name))
		if getErr == buntdb.ErrNotFound {
			return notFound("object %s/%s", bucket, name)
		}
		if getErr != nil {
			return apierror.Wrap(apierror.Internal, getErr, "get latest pointer")
		}
		gen, convErr := strconv.ParseInt(raw, 10, 64)
		if convErr != nil {
			return apierror.Wrap(apierror.Internal, convErr, "parse generation pointer")
		}
		var o Object
		if err := get(tx, objectGenKey(bucket, name, gen), &o); err != nil {
			return err
		}
		if err := delIfExists(tx, objectLatestKey(bucket, name)); err != nil {
			return err
		}
		s.indexDelete(bucket, name)
		if versioningEnabled {
			o.IsLatest = false
			o.Deleted = true
			return s.putObjectRow(tx, o)
		}
		filePathToUnlink = o.FilePath
		return delIfExists(tx, objectGenKey(bucket, name, gen))
	})
	return filePathToUnlink, err
}

// UpdateObjectACL atomically updates the ACL on the live version of an
// object (spec.md §4.G ACLs).
func (s *Store) UpdateObjectACL(bucket, name string, acl ACL) error {
	return s.update(func(tx *buntdb.Tx) error {
		raw, getErr := tx.Get(objectLatestKey(bucket, name))
		if getErr == buntdb.ErrNotFound {
			return notFound("object %s/%s", bucket, name)
		}
		if getErr != nil {
			return apierror.Wrap(apierror.Internal, getErr, "get latest pointer")
		}
		gen, convErr := strconv.ParseInt(raw, 10, 64)
		if convErr != nil {
			return apierror.Wrap(apierror.Internal, convErr, "parse generation pointer")
		}
		var o Object
		if err := get(tx, objectGenKey(bucket, name, gen), &o); err != nil {
			return err
		}
		o.ACL = acl
		o.Metageneration++
		return s.putObjectRow(tx, o)
	})
}

// Update runs fn inside a metadata-store write transaction. It is the
// general-purpose escape hatch WithObjectLock is built from, exported for
// multi-step operations (upload, copy) that need to read-then-write more
// than one key atomically.
func (s *Store) Update(fn func(tx *buntdb.Tx) error) error { return s.update(fn) }

// View runs fn inside a read-only snapshot transaction.
func (s *Store) View(fn func(tx *buntdb.Tx) error) error { return s.view(fn) }

// Get is the exported single-key JSON read, for callers composing their own
// transactions (e.g. storagesvc.Copy).
func Get[T any](tx *buntdb.Tx, key string, into *T) error { return get(tx, key, into) }

// ObjectGenKey/ObjectLatestKey expose the key builders so storagesvc can
// compose multi-object transactions (copy/rewrite) without reaching into
// package-private helpers.
func ObjectGenKey(bucket, name string, generation int64) string {
	return objectGenKey(bucket, name, generation)
}

func ObjectLatestKey(bucket, name string) string { return objectLatestKey(bucket, name) }

// LiveFilePaths returns every on-disk path referenced by a live Object
// row, satisfying objectstore.FilePathRefs so the Object Byte Store's
// orphan sweeper can compare its directory walk against it (spec.md §4.C
// orphan sweep).
func (s *Store) LiveFilePaths() (map[string]struct{}, error) {
	paths := make(map[string]struct{})
	err := s.view(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(key, value string) bool {
			if len(key) > len("object:") && key[:len("object:")] == "object:" {
				var o Object
				if decodeInto(value, &o) == nil && o.FilePath != "" {
					paths[o.FilePath] = struct{}{}
				}
			}
			return true
		})
	})
	return paths, err
}
