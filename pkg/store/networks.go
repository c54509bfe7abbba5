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

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
)

func (s *Store) CreateNetwork(n Network) error {
	return s.update(func(tx *buntdb.Tx) error {
		return setNX(tx, networkKey(n.ProjectID, n.Name), n)
	})
}

// EnsureDefaultNetwork inserts the project's "default" network row if
// absent, idempotently. It reports whether the row was newly created.
func (s *Store) EnsureDefaultNetwork(n Network) (created bool, err error) {
	err = s.update(func(tx *buntdb.Tx) error {
		key := networkKey(n.ProjectID, n.Name)
		if _, getErr := tx.Get(key); getErr == nil {
			created = false
			return nil
		} else if getErr != buntdb.ErrNotFound {
			return apierror.Wrap(apierror.Internal, getErr, "get %s", key)
		}
		if err := set(tx, key, n); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (s *Store) GetNetwork(project, name string) (Network, error) {
	var n Network
	err := s.view(func(tx *buntdb.Tx) error {
		return get(tx, networkKey(project, name), &n)
	})
	return n, err
}

func (s *Store) ListNetworks(project string) ([]Network, error) {
	var out []Network
	err := s.view(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(networkPrefix(project)+"*", func(key, value string) bool {
			var n Network
			if decodeInto(value, &n) == nil {
				out = append(out, n)
			}
			return true
		})
	})
	return out, err
}

func (s *Store) DeleteNetwork(project, name string) error {
	return s.update(func(tx *buntdb.Tx) error {
		return del(tx, networkKey(project, name))
	})
}

// CountInstancesOnNetwork reports how many instances in project reference
// network, used by the Network Service to refuse deletion of an in-use
// network (spec.md invariant 4).
func (s *Store) CountInstancesOnNetwork(project, network string) (int, error) {
	count := 0
	err := s.view(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(instanceProjectPrefix(project)+"*", func(key, value string) bool {
			var inst Instance
			if decodeInto(value, &inst) == nil && inst.NetworkName == network {
				count++
			}
			return true
		})
	})
	return count, err
}
