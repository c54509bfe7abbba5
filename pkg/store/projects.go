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
	"strings"

	"github.com/tidwall/buntdb"
)

// CreateProject inserts a new Project row, failing AlreadyExists if the id
// is taken.
func (s *Store) CreateProject(p Project) error {
	return s.update(func(tx *buntdb.Tx) error {
		return setNX(tx, projectKey(p.ID), p)
	})
}

func (s *Store) GetProject(id string) (Project, error) {
	var p Project
	err := s.view(func(tx *buntdb.Tx) error {
		return get(tx, projectKey(id), &p)
	})
	return p, err
}

func (s *Store) ListProjects() ([]Project, error) {
	var out []Project
	err := s.view(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(projectPrefix()+"*", func(key, value string) bool {
			var p Project
			if err := decodeInto(value, &p); err == nil {
				out = append(out, p)
			}
			return true
		})
	})
	return out, err
}

// CascadeDeleteProject removes the project row and every network, subnet,
// instance, bucket (and its objects), and service account owned by it, in
// one transaction.
func (s *Store) CascadeDeleteProject(id string) error {
	return s.update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(projectKey(id)); err != nil {
			if err == buntdb.ErrNotFound {
				return notFound("project %s", id)
			}
			return err
		}

		var bucketsOwned []string
		if err := tx.Ascend("", func(key, value string) bool {
			if strings.HasPrefix(key, bucketPrefix()) {
				var b Bucket
				if decodeInto(value, &b) == nil && b.ProjectID == id {
					bucketsOwned = append(bucketsOwned, b.Name)
				}
			}
			return true
		}); err != nil {
			return err
		}
		for _, bname := range bucketsOwned {
			if err := deleteAllKeysWithPrefix(tx, objectBucketPrefix(bname)); err != nil {
				return err
			}
			if err := deleteAllKeysWithPrefix(tx, objectLatestBucketPrefix(bname)); err != nil {
				return err
			}
			if err := delIfExists(tx, bucketKey(bname)); err != nil {
				return err
			}
		}

		// Instances carry secondary indexes (containerid:, ip:) keyed
		// independent of the project prefix, so walk them first and drop
		// those alongside the primary row rather than leaving them orphaned.
		var instsOwned []Instance
		if err := tx.AscendKeys(instanceProjectPrefix(id)+"*", func(key, value string) bool {
			var inst Instance
			if decodeInto(value, &inst) == nil {
				instsOwned = append(instsOwned, inst)
			}
			return true
		}); err != nil {
			return err
		}
		for _, inst := range instsOwned {
			if inst.ContainerID != "" {
				if err := delIfExists(tx, containerIDKey(inst.ContainerID)); err != nil {
					return err
				}
			}
			if inst.InternalIP != "" {
				if err := delIfExists(tx, ipKey(inst.NetworkName, inst.InternalIP)); err != nil {
					return err
				}
			}
		}

		for _, prefix := range []string{
			networkPrefix(id),
			instanceProjectPrefix(id),
			serviceAccountProjectPrefix(id),
			routePrefix(id),
		} {
			if err := deleteAllKeysWithPrefix(tx, prefix); err != nil {
				return err
			}
		}
		// Subnets are keyed by project+network+name, nested under the
		// networks deleted above -- sweep them by project
		// prefix too, since "subnet:{project}:" is itself a valid prefix.
		if err := deleteAllKeysWithPrefix(tx, "subnet:"+id+":"); err != nil {
			return err
		}
		return del(tx, projectKey(id))
	})
}

func deleteAllKeysWithPrefix(tx *buntdb.Tx, prefix string) error {
	var keys []string
	if err := tx.AscendKeys(prefix+"*", func(key, value string) bool {
		keys = append(keys, key)
		return true
	}); err != nil {
		return err
	}
	for _, k := range keys {
		if err := delIfExists(tx, k); err != nil {
			return err
		}
	}
	return nil
}
