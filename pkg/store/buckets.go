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
	"github.com/tidwall/buntdb"
)

func (s *Store) CreateBucket(b Bucket) error {
	return s.update(func(tx *buntdb.Tx) error {
		return setNX(tx, bucketKey(b.Name), b)
	})
}

func (s *Store) GetBucket(name string) (Bucket, error) {
	var b Bucket
	err := s.view(func(tx *buntdb.Tx) error {
		return get(tx, bucketKey(name), &b)
	})
	return b, err
}

func (s *Store) ListBuckets(project string) ([]Bucket, error) {
	var out []Bucket
	err := s.view(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(bucketPrefix()+"*", func(key, value string) bool {
			var b Bucket
			if decodeInto(value, &b) == nil && (project == "" || b.ProjectID == project) {
				out = append(out, b)
			}
			return true
		})
	})
	return out, err
}

func (s *Store) UpdateBucket(b Bucket) error {
	return s.update(func(tx *buntdb.Tx) error {
		key := bucketKey(b.Name)
		if _, err := tx.Get(key); err != nil {
			if err == buntdb.ErrNotFound {
				return notFound("bucket %s", b.Name)
			}
			return err
		}
		return set(tx, key, b)
	})
}

func (s *Store) DeleteBucket(name string) error {
	return s.update(func(tx *buntdb.Tx) error {
		return del(tx, bucketKey(name))
	})
}

// BucketHasLiveObjects reports whether any non-deleted object row exists
// for bucket, used to refuse deleting a non-empty bucket.
func (s *Store) BucketHasLiveObjects(bucket string) (bool, error) {
	found := false
	err := s.view(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(objectLatestBucketPrefix(bucket)+"*", func(key, value string) bool {
			found = true
			return false
		})
	})
	return found, err
}
