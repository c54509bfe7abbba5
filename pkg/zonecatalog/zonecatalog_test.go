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

package zonecatalog

import (
	"testing"

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
)

func TestDefaultSeedsEveryZoneWithEveryMachineFamily(t *testing.T) {
	c := Default()
	zones := c.ListZones()
	if len(zones) == 0 {
		t.Fatal("expected at least one zone")
	}
	want, err := c.ListMachineTypes(zones[0].Name)
	if err != nil {
		t.Fatalf("ListMachineTypes(%s): %v", zones[0].Name, err)
	}
	for _, z := range zones {
		mts, err := c.ListMachineTypes(z.Name)
		if err != nil {
			t.Fatalf("ListMachineTypes(%s): %v", z.Name, err)
		}
		if len(mts) == 0 {
			t.Errorf("zone %s has no machine types", z.Name)
		}
		if len(mts) != len(want) {
			t.Errorf("zone %s has %d machine types, want %d", z.Name, len(mts), len(want))
		}
		for i, mt := range mts {
			if mt.Zone != z.Name {
				t.Errorf("machine type %s.Zone = %s, want %s", mt.Name, mt.Zone, z.Name)
			}
			if i < len(want) && mt.Name != want[i].Name {
				t.Errorf("zone %s machine type %d = %s, want %s", z.Name, i, mt.Name, want[i].Name)
			}
		}
	}
}

func TestGetZoneUnknownIsNotFound(t *testing.T) {
	c := Default()
	if _, err := c.GetZone("mars-central1-a"); !apierror.Is(err, apierror.NotFound) {
		t.Errorf("GetZone(unknown) kind = %v, want NotFound", apierror.KindOf(err))
	}
}

func TestListMachineTypesUnknownZoneIsNotFound(t *testing.T) {
	c := Default()
	if _, err := c.ListMachineTypes("nowhere"); !apierror.Is(err, apierror.NotFound) {
		t.Errorf("ListMachineTypes(unknown zone) kind = %v, want NotFound", apierror.KindOf(err))
	}
}

func TestGetMachineTypeRoundTrip(t *testing.T) {
	c := Default()
	zone := c.ListZones()[0]
	mts, err := c.ListMachineTypes(zone.Name)
	if err != nil || len(mts) == 0 {
		t.Fatalf("setup: ListMachineTypes failed: %v", err)
	}
	got, err := c.GetMachineType(zone.Name, mts[0].Name)
	if err != nil {
		t.Fatalf("GetMachineType: %v", err)
	}
	if got != mts[0] {
		t.Errorf("GetMachineType = %+v, want %+v", got, mts[0])
	}
}

func TestListZonesReturnsACopy(t *testing.T) {
	c := Default()
	zones := c.ListZones()
	zones[0].Name = "mutated"
	if c.ListZones()[0].Name == "mutated" {
		t.Error("ListZones must return a defensive copy, not the internal slice")
	}
}
