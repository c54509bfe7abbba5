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
	"time"

	"github.com/tidwall/buntdb"

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
)

func (s *Store) CreateSignedURLSession(sess SignedURLSession) error {
	return s.update(func(tx *buntdb.Tx) error {
		return setNX(tx, signedURLKey(sess.Token), sess)
	})
}

// RedeemSignedURLSession looks up token, returning NotFound if it is
// absent or has expired, and opportunistically evicts expired rows
// encountered along the way (spec.md §4.G signed-URL redeem step 4).
func (s *Store) RedeemSignedURLSession(token string, now time.Time) (SignedURLSession, error) {
	var sess SignedURLSession
	err := s.update(func(tx *buntdb.Tx) error {
		key := signedURLKey(token)
		if err := get(tx, key, &sess); err != nil {
			return err
		}
		if !sess.ExpiresAt.After(now) {
			if delErr := delIfExists(tx, key); delErr != nil {
				return delErr
			}
			return apierror.New(apierror.NotFound, "signed url expired")
		}
		sess.AccessCount++
		return set(tx, key, sess)
	})
	return sess, err
}

// SweepExpiredSignedURLs deletes every session whose expiry has passed,
// returning the count removed. Run periodically by the background sweeper
// named in spec.md §5/§7.
func (s *Store) SweepExpiredSignedURLs(now time.Time) (int, error) {
	removed := 0
	err := s.update(func(tx *buntdb.Tx) error {
		var expired []string
		if err := tx.AscendKeys(signedURLPrefix()+"*", func(key, value string) bool {
			var sess SignedURLSession
			if decodeInto(value, &sess) == nil && !sess.ExpiresAt.After(now) {
				expired = append(expired, key)
			}
			return true
		}); err != nil {
			return err
		}
		for _, k := range expired {
			if err := delIfExists(tx, k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
