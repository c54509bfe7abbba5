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

// InsertInstance inserts the Instance row and its secondary uniqueness
// indexes (container id, internal ip within network) in one transaction.
func (s *Store) InsertInstance(inst Instance) error {
	return s.update(func(tx *buntdb.Tx) error {
		return s.insertInstanceTx(tx, inst)
	})
}

func (s *Store) insertInstanceTx(tx *buntdb.Tx, inst Instance) error {
	key := instanceKey(inst.ProjectID, inst.Zone, inst.Name)
	if err := setNX(tx, key, inst); err != nil {
		return err
	}
	if inst.ContainerID != "" {
		if err := setNX(tx, containerIDKey(inst.ContainerID), key); err != nil {
			return err
		}
	}
	if inst.InternalIP != "" {
		if err := setNX(tx, ipKey(inst.NetworkName, inst.InternalIP), key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetInstanceByName(project, zone, name string) (Instance, error) {
	var inst Instance
	err := s.view(func(tx *buntdb.Tx) error {
		return get(tx, instanceKey(project, zone, name), &inst)
	})
	return inst, err
}

func (s *Store) ListInstancesByProjectZone(project, zone string) ([]Instance, error) {
	var out []Instance
	err := s.view(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(instanceProjectZonePrefix(project, zone)+"*", func(key, value string) bool {
			var inst Instance
			if decodeInto(value, &inst) == nil {
				out = append(out, inst)
			}
			return true
		})
	})
	return out, err
}

func (s *Store) ListInstancesByProject(project string) ([]Instance, error) {
	var out []Instance
	err := s.view(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(instanceProjectPrefix(project)+"*", func(key, value string) bool {
			var inst Instance
			if decodeInto(value, &inst) == nil {
				out = append(out, inst)
			}
			return true
		})
	})
	return out, err
}

// UpdateInstance overwrites the Instance row in place. Callers that change
// ContainerID or InternalIP must go through ReplaceInstance so the
// secondary indexes stay consistent.
func (s *Store) UpdateInstance(inst Instance) error {
	return s.update(func(tx *buntdb.Tx) error {
		key := instanceKey(inst.ProjectID, inst.Zone, inst.Name)
		if _, err := tx.Get(key); err != nil {
			if err == buntdb.ErrNotFound {
				return notFound("instance %s", key)
			}
			return err
		}
		return set(tx, key, inst)
	})
}

// ReplaceInstance swaps out an instance row along with its secondary
// indexes, used when ContainerID or InternalIP changes (reconciliation
// clearing a container id, or status transitions).
func (s *Store) ReplaceInstance(old, updated Instance) error {
	return s.update(func(tx *buntdb.Tx) error {
		key := instanceKey(old.ProjectID, old.Zone, old.Name)
		if old.ContainerID != "" && old.ContainerID != updated.ContainerID {
			if err := delIfExists(tx, containerIDKey(old.ContainerID)); err != nil {
				return err
			}
		}
		if old.InternalIP != "" && old.InternalIP != updated.InternalIP {
			if err := delIfExists(tx, ipKey(old.NetworkName, old.InternalIP)); err != nil {
				return err
			}
		}
		if updated.ContainerID != "" && updated.ContainerID != old.ContainerID {
			if err := setNX(tx, containerIDKey(updated.ContainerID), key); err != nil {
				return err
			}
		}
		if updated.InternalIP != "" && updated.InternalIP != old.InternalIP {
			if err := setNX(tx, ipKey(updated.NetworkName, updated.InternalIP), key); err != nil {
				return err
			}
		}
		return set(tx, key, updated)
	})
}

// DeleteInstance removes the Instance row and its secondary indexes.
func (s *Store) DeleteInstance(inst Instance) error {
	return s.update(func(tx *buntdb.Tx) error {
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
		return del(tx, instanceKey(inst.ProjectID, inst.Zone, inst.Name))
	})
}
