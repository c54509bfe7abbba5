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

// Package idsvc is the Project & Identity Service: project lifecycle and
// service-account issuance (spec.md §4.D). Creating a project synchronously
// ensures its default network exists before the call returns.
package idsvc

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/netsvc"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/store"
)

var (
	projectIDPattern   = regexp.MustCompile(`^[a-z0-9-]{6,30}$`)
	accountIDPattern   = regexp.MustCompile(`^[a-z][a-z0-9-]{4,28}[a-z0-9]$`)
	uniqueIDUpperBound *big.Int
)

func init() {
	// 21-digit decimal upper bound, exclusive.
	uniqueIDUpperBound = new(big.Int)
	uniqueIDUpperBound.SetString("1000000000000000000000", 10)
}

// Service implements project and service-account lifecycle operations.
type Service struct {
	store *store.Store
	nets  *netsvc.Service
}

func New(st *store.Store, nets *netsvc.Service) *Service {
	return &Service{store: st, nets: nets}
}

// CreateProject validates id, persists the project, and synchronously
// ensures its default network exists (spec.md §4.D).
func (s *Service) CreateProject(ctx context.Context, id, displayName string) (store.Project, error) {
	if !projectIDPattern.MatchString(id) {
		return store.Project{}, apierror.New(apierror.InvalidArgument,
			"project id %q must be 6-30 lower-case letters, digits, or hyphens", id)
	}
	p := store.Project{
		ID:          id,
		DisplayName: displayName,
		CreateTime:  time.Now().UTC(),
	}
	if err := s.store.CreateProject(p); err != nil {
		return store.Project{}, err
	}
	if _, err := s.nets.EnsureDefaultNetwork(ctx, id); err != nil {
		return store.Project{}, err
	}
	return p, nil
}

func (s *Service) GetProject(id string) (store.Project, error) { return s.store.GetProject(id) }

func (s *Service) ListProjects() ([]store.Project, error) { return s.store.ListProjects() }

// DeleteProject cascades to every owned resource.
func (s *Service) DeleteProject(id string) error { return s.store.CascadeDeleteProject(id) }

// CreateServiceAccount validates accountId, derives the canonical email,
// and mints a random 21-digit unique_id (spec.md §4.D).
func (s *Service) CreateServiceAccount(project, accountID, displayName, description string) (store.ServiceAccount, error) {
	if !accountIDPattern.MatchString(accountID) {
		return store.ServiceAccount{}, apierror.New(apierror.InvalidArgument,
			"service account id %q must match %s", accountID, accountIDPattern.String())
	}
	if _, err := s.store.GetProject(project); err != nil {
		return store.ServiceAccount{}, err
	}
	uniqueID, err := randomDecimalDigits(21)
	if err != nil {
		return store.ServiceAccount{}, apierror.Wrap(apierror.Internal, err, "generate unique id")
	}
	// The OAuth2 client id is a distinct random identifier from unique_id,
	// matching the cloud's own issuance of two separate numeric ids per
	// service account.
	oauth2ClientID, err := randomDecimalDigits(21)
	if err != nil {
		return store.ServiceAccount{}, apierror.Wrap(apierror.Internal, err, "generate oauth2 client id")
	}
	now := time.Now().UTC()
	sa := store.ServiceAccount{
		Email:          fmt.Sprintf("%s@%s.iam.gserviceaccount.com", accountID, project),
		ProjectID:      project,
		AccountID:      accountID,
		DisplayName:    displayName,
		Description:    description,
		UniqueID:       uniqueID,
		OAuth2ClientID: oauth2ClientID,
		CreateTime:     now,
		UpdateTime:     now,
	}
	if err := s.store.CreateServiceAccount(sa); err != nil {
		return store.ServiceAccount{}, err
	}
	return sa, nil
}

func (s *Service) GetServiceAccount(project, email string) (store.ServiceAccount, error) {
	return s.store.GetServiceAccountByEmail(project, email)
}

func (s *Service) ListServiceAccounts(project string) ([]store.ServiceAccount, error) {
	return s.store.ListServiceAccounts(project)
}

func (s *Service) DeleteServiceAccount(project, accountID string) error {
	return s.store.DeleteServiceAccount(project, accountID)
}

// ListKeys always returns an empty slice: key material is not emulated,
// but clients probing this endpoint still expect a 200 with an array
// (spec.md §4.D).
func (s *Service) ListKeys(email string) []struct{} { return []struct{}{} }

func randomDecimalDigits(n int) (string, error) {
	v, err := rand.Int(rand.Reader, uniqueIDUpperBound)
	if err != nil {
		return "", err
	}
	digits := v.String()
	if pad := n - len(digits); pad > 0 {
		digits = fmt.Sprintf("%s%s", zeroes(pad), digits)
	}
	return digits, nil
}

func zeroes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}
