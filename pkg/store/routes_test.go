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
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCreateGetListRoute(t *testing.T) {
	st := openTestStore(t)
	r := Route{
		Name:       "to-nat",
		ProjectID:  "proj1",
		Network:    "default",
		DestRange:  "0.0.0.0/0",
		Priority:   1000,
		CreateTime: time.Now().UTC().Truncate(time.Second),
	}
	if err := st.CreateRoute(r); err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}
	if err := st.CreateRoute(r); !apierror.Is(err, apierror.AlreadyExists) {
		t.Errorf("duplicate CreateRoute kind = %v, want AlreadyExists", apierror.KindOf(err))
	}

	got, err := st.GetRoute("proj1", "to-nat")
	if err != nil {
		t.Fatalf("GetRoute: %v", err)
	}
	if diff := cmp.Diff(r, got); diff != "" {
		t.Errorf("GetRoute mismatch (-want +got):\n%s", diff)
	}

	list, err := st.ListRoutes("proj1")
	if err != nil {
		t.Fatalf("ListRoutes: %v", err)
	}
	if len(list) != 1 || list[0].Name != "to-nat" {
		t.Errorf("ListRoutes = %+v, want single route to-nat", list)
	}

	if list, err := st.ListRoutes("other-project"); err != nil || len(list) != 0 {
		t.Errorf("ListRoutes(other-project) = %+v, %v, want empty, nil", list, err)
	}
}

func TestUpdateRouteRejectsMissing(t *testing.T) {
	st := openTestStore(t)
	r := Route{Name: "ghost", ProjectID: "proj1", Network: "default", DestRange: "10.0.0.0/8"}
	if err := st.UpdateRoute(r); !apierror.Is(err, apierror.NotFound) {
		t.Errorf("UpdateRoute(missing) kind = %v, want NotFound", apierror.KindOf(err))
	}
}

func TestUpdateRouteMutatesExisting(t *testing.T) {
	st := openTestStore(t)
	r := Route{Name: "r1", ProjectID: "proj1", Network: "default", DestRange: "10.0.0.0/8", Priority: 1000}
	if err := st.CreateRoute(r); err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}
	r.Priority = 500
	r.NextHopGateway = "default-internet-gateway"
	if err := st.UpdateRoute(r); err != nil {
		t.Fatalf("UpdateRoute: %v", err)
	}
	got, err := st.GetRoute("proj1", "r1")
	if err != nil {
		t.Fatalf("GetRoute: %v", err)
	}
	if got.Priority != 500 || got.NextHopGateway != "default-internet-gateway" {
		t.Errorf("GetRoute after update = %+v, want priority 500 and gateway set", got)
	}
}

func TestDeleteRouteThenGetIsNotFound(t *testing.T) {
	st := openTestStore(t)
	r := Route{Name: "r1", ProjectID: "proj1", Network: "default", DestRange: "10.0.0.0/8"}
	if err := st.CreateRoute(r); err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}
	if err := st.DeleteRoute("proj1", "r1"); err != nil {
		t.Fatalf("first DeleteRoute: %v", err)
	}
	if err := st.DeleteRoute("proj1", "r1"); !apierror.Is(err, apierror.NotFound) {
		t.Errorf("second DeleteRoute kind = %v, want NotFound, matching DeleteNetwork's convention", apierror.KindOf(err))
	}
	if _, err := st.GetRoute("proj1", "r1"); !apierror.Is(err, apierror.NotFound) {
		t.Errorf("GetRoute after delete kind = %v, want NotFound", apierror.KindOf(err))
	}
}
