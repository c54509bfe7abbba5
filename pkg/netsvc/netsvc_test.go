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

package netsvc

import (
	"testing"
	"time"

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/store"
)

// newTestService builds a Service whose store has a project and a "default"
// network already seeded, backed by an in-memory metadata store. The
// Container Driver is nil: every method exercised here (routes, subnets)
// never calls it, only CreateNetwork/DeleteNetwork do.
func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.CreateProject(store.Project{ID: "proj1", CreateTime: time.Now().UTC()}); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if err := st.CreateNetwork(store.Network{
		Name: DefaultNetworkName, ProjectID: "proj1", CIDR: DefaultNetworkCIDR, CreateTime: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed default network: %v", err)
	}
	return New(st, nil)
}

func TestCreateRouteRejectsBadName(t *testing.T) {
	s := newTestService(t)
	if _, err := s.CreateRoute("proj1", "Bad_Name", DefaultNetworkName, "0.0.0.0/0", "", 1000, nil); !apierror.Is(err, apierror.InvalidArgument) {
		t.Errorf("kind = %v, want InvalidArgument", apierror.KindOf(err))
	}
}

func TestCreateRouteRejectsUnknownNetwork(t *testing.T) {
	s := newTestService(t)
	if _, err := s.CreateRoute("proj1", "r1", "no-such-network", "0.0.0.0/0", "", 1000, nil); !apierror.Is(err, apierror.NotFound) {
		t.Errorf("kind = %v, want NotFound", apierror.KindOf(err))
	}
}

func TestCreateRouteRejectsBadCIDR(t *testing.T) {
	s := newTestService(t)
	if _, err := s.CreateRoute("proj1", "r1", DefaultNetworkName, "not-a-cidr", "", 1000, nil); !apierror.Is(err, apierror.InvalidArgument) {
		t.Errorf("kind = %v, want InvalidArgument", apierror.KindOf(err))
	}
}

func TestCreateRouteThenUpdateThenDelete(t *testing.T) {
	s := newTestService(t)
	r, err := s.CreateRoute("proj1", "to-nat", DefaultNetworkName, "0.0.0.0/0", "", 1000, []string{"nat"})
	if err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}
	if r.Network != DefaultNetworkName || r.Priority != 1000 {
		t.Errorf("CreateRoute result = %+v, unexpected fields", r)
	}

	updated, err := s.UpdateRoute("proj1", "to-nat", 500, "default-internet-gateway", nil)
	if err != nil {
		t.Fatalf("UpdateRoute: %v", err)
	}
	if updated.Priority != 500 || updated.NextHopGateway != "default-internet-gateway" {
		t.Errorf("UpdateRoute result = %+v, want priority 500 and the gateway set", updated)
	}
	if updated.Network != DefaultNetworkName || updated.DestRange != "0.0.0.0/0" {
		t.Errorf("UpdateRoute must not mutate network or destRange, got %+v", updated)
	}

	if err := s.DeleteRoute("proj1", "to-nat"); err != nil {
		t.Fatalf("DeleteRoute: %v", err)
	}
	if _, err := s.GetRoute("proj1", "to-nat"); !apierror.Is(err, apierror.NotFound) {
		t.Errorf("GetRoute after delete kind = %v, want NotFound", apierror.KindOf(err))
	}
}

func TestCreateSubnetRejectsOverlapWithSibling(t *testing.T) {
	s := newTestService(t)
	if _, err := s.CreateSubnet("proj1", "us-central1", DefaultNetworkName, "sub-a", "10.128.0.0/20"); err != nil {
		t.Fatalf("CreateSubnet(sub-a): %v", err)
	}
	if _, err := s.CreateSubnet("proj1", "us-central1", DefaultNetworkName, "sub-b", "10.128.0.0/24"); !apierror.Is(err, apierror.FailedPrecondition) {
		t.Errorf("overlapping subnet kind = %v, want FailedPrecondition", apierror.KindOf(err))
	}
}

func TestCreateSubnetRejectsOutsideParentCIDR(t *testing.T) {
	s := newTestService(t)
	if _, err := s.CreateSubnet("proj1", "us-central1", DefaultNetworkName, "sub-a", "192.168.0.0/24"); !apierror.Is(err, apierror.FailedPrecondition) {
		t.Errorf("out-of-range subnet kind = %v, want FailedPrecondition", apierror.KindOf(err))
	}
}

func TestCreateSubnetAcceptsStandardPrivateRangeUnderCustomNetwork(t *testing.T) {
	s := newTestService(t)
	if err := s.store.CreateNetwork(store.Network{
		Name: "vpc-a", ProjectID: "proj1", CIDR: customNetworkCIDR, CreateTime: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed custom network: %v", err)
	}
	if _, err := s.CreateSubnet("proj1", "us-central1", "vpc-a", "sn-a", "10.0.0.0/24"); err != nil {
		t.Fatalf("CreateSubnet(10.0.0.0/24) under custom network: %v", err)
	}
}

func TestCreateSubnetDuplicateNameConflicts(t *testing.T) {
	s := newTestService(t)
	if _, err := s.CreateSubnet("proj1", "us-central1", DefaultNetworkName, "sub-a", "10.128.0.0/20"); err != nil {
		t.Fatalf("CreateSubnet: %v", err)
	}
	if _, err := s.CreateSubnet("proj1", "us-central1", DefaultNetworkName, "sub-a", "10.128.16.0/20"); !apierror.Is(err, apierror.AlreadyExists) {
		t.Errorf("duplicate subnet name kind = %v, want AlreadyExists", apierror.KindOf(err))
	}
}
