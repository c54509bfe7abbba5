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

import "github.com/tidwall/buntdb"

func (s *Store) CreateRoute(r Route) error {
	return s.update(func(tx *buntdb.Tx) error {
		return setNX(tx, routeKey(r.ProjectID, r.Name), r)
	})
}

func (s *Store) GetRoute(project, name string) (Route, error) {
	var r Route
	err := s.view(func(tx *buntdb.Tx) error {
		return get(tx, routeKey(project, name), &r)
	})
	return r, err
}

func (s *Store) ListRoutes(project string) ([]Route, error) {
	var out []Route
	err := s.view(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(routePrefix(project)+"*", func(key, value string) bool {
			var r Route
			if decodeInto(value, &r) == nil {
				out = append(out, r)
			}
			return true
		})
	})
	return out, err
}

func (s *Store) UpdateRoute(r Route) error {
	return s.update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(routeKey(r.ProjectID, r.Name)); err != nil {
			if err == buntdb.ErrNotFound {
				return notFound("route %s/%s", r.ProjectID, r.Name)
			}
			return err
		}
		return set(tx, routeKey(r.ProjectID, r.Name), r)
	})
}

func (s *Store) DeleteRoute(project, name string) error {
	return s.update(func(tx *buntdb.Tx) error {
		return del(tx, routeKey(project, name))
	})
}
