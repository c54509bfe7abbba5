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

// CurrentSchemaVersion identifies the shape of the keys and JSON values
// this binary expects. Bump it and add an entry to migrators whenever a key
// layout or a JSON field changes meaning in a way existing rows need
// rewritten for.
const CurrentSchemaVersion = 1

const schemaVersionKey = "meta:schema_version"

// migrators maps the schema version a store was opened at to a function
// that brings it to the next version. There is nothing to migrate yet --
// this is schema version 1 of a new store -- but the map is kept (rather
// than introduced later) so the upgrade path this emulator will eventually
// need has a home from day one.
var migrators = map[int]func(*Store) error{}

func (s *Store) migrate() error {
	version, err := s.schemaVersion()
	if err != nil {
		return err
	}
	for version < CurrentSchemaVersion {
		fn, ok := migrators[version]
		if !ok {
			return apierror.New(apierror.Internal, "no migrator registered for schema version %d", version)
		}
		if err := fn(s); err != nil {
			return apierror.Wrap(apierror.Internal, err, "migrate schema from version %d", version)
		}
		version++
		if err := s.setSchemaVersion(version); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) schemaVersion() (int, error) {
	var version int
	err := s.view(func(tx *buntdb.Tx) error {
		raw, err := tx.Get(schemaVersionKey)
		if err == buntdb.ErrNotFound {
			version = CurrentSchemaVersion
			return nil
		}
		if err != nil {
			return apierror.Wrap(apierror.Internal, err, "read schema version")
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return apierror.Wrap(apierror.Internal, err, "parse schema version")
		}
		version = v
		return nil
	})
	return version, err
}

func (s *Store) setSchemaVersion(v int) error {
	return s.update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(schemaVersionKey, strconv.Itoa(v), nil); err != nil {
			return apierror.Wrap(apierror.Internal, err, "write schema version")
		}
		return nil
	})
}
