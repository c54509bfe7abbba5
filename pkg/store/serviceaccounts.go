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

func (s *Store) CreateServiceAccount(sa ServiceAccount) error {
	return s.update(func(tx *buntdb.Tx) error {
		return setNX(tx, serviceAccountKey(sa.ProjectID, sa.AccountID), sa)
	})
}

func (s *Store) GetServiceAccount(project, accountID string) (ServiceAccount, error) {
	var sa ServiceAccount
	err := s.view(func(tx *buntdb.Tx) error {
		return get(tx, serviceAccountKey(project, accountID), &sa)
	})
	return sa, err
}

// GetServiceAccountByEmail scans for the account whose derived email
// matches -- accounts are keyed by (project, accountId), and the email is
// a pure function of those two fields, so this is used only by the handful
// of call sites that only have the email (e.g. the HTTP surface's
// DELETE/{email} path).
func (s *Store) GetServiceAccountByEmail(project, email string) (ServiceAccount, error) {
	var found ServiceAccount
	err := s.view(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(serviceAccountProjectPrefix(project)+"*", func(key, value string) bool {
			var sa ServiceAccount
			if decodeInto(value, &sa) == nil && sa.Email == email {
				found = sa
				return false
			}
			return true
		})
	})
	if err == nil && found.Email == "" {
		return ServiceAccount{}, notFound("service account %s", email)
	}
	return found, err
}

func (s *Store) ListServiceAccounts(project string) ([]ServiceAccount, error) {
	var out []ServiceAccount
	err := s.view(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(serviceAccountProjectPrefix(project)+"*", func(key, value string) bool {
			var sa ServiceAccount
			if decodeInto(value, &sa) == nil {
				out = append(out, sa)
			}
			return true
		})
	})
	return out, err
}

func (s *Store) DeleteServiceAccount(project, accountID string) error {
	return s.update(func(tx *buntdb.Tx) error {
		return del(tx, serviceAccountKey(project, accountID))
	})
}
