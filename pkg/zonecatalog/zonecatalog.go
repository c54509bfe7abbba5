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

// Package zonecatalog holds the static Zone and MachineType catalog. Zones
// and machine types are seeded once at startup and never mutated by
// clients (spec.md §3, §4 component table row F "Static catalog").
package zonecatalog

import (
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/store"
)

// Catalog is an immutable, in-memory seed of zones and their machine types.
type Catalog struct {
	zones        []store.Zone
	zoneByName   map[string]store.Zone
	machineTypes map[string][]store.MachineType // zone -> machine types
}

// Default returns the catalog seeded at process start: three zones (two in
// us-central1, one in europe-west1), each offering the same small family of
// machine types, wide
// enough to exercise every machine-type field without pretending to
// emulate the full public catalog.
func Default() *Catalog {
	zones := []store.Zone{
		{Name: "us-central1-a", Region: "us-central1"},
		{Name: "us-central1-b", Region: "us-central1"},
		{Name: "europe-west1-b", Region: "europe-west1"},
	}
	families := []struct {
		name string
		cpus int
		mem  int
	}{
		{"e2-micro", 2, 1024},
		{"e2-small", 2, 2048},
		{"e2-medium", 2, 4096},
		{"e2-standard-4", 4, 16384},
		{"n2-standard-8", 8, 32768},
	}

	c := &Catalog{
		zoneByName:   make(map[string]store.Zone, len(zones)),
		machineTypes: make(map[string][]store.MachineType, len(zones)),
	}
	for _, z := range zones {
		c.zones = append(c.zones, z)
		c.zoneByName[z.Name] = z
		for _, f := range families {
			c.machineTypes[z.Name] = append(c.machineTypes[z.Name], store.MachineType{
				Name:      f.name,
				Zone:      z.Name,
				GuestCPUs: f.cpus,
				MemoryMB:  f.mem,
			})
		}
	}
	return c
}

func (c *Catalog) ListZones() []store.Zone { return append([]store.Zone(nil), c.zones...) }

func (c *Catalog) GetZone(name string) (store.Zone, error) {
	z, ok := c.zoneByName[name]
	if !ok {
		return store.Zone{}, apierror.New(apierror.NotFound, "zone %s not found", name)
	}
	return z, nil
}

func (c *Catalog) ZoneExists(name string) bool {
	_, ok := c.zoneByName[name]
	return ok
}

func (c *Catalog) ListMachineTypes(zone string) ([]store.MachineType, error) {
	if !c.ZoneExists(zone) {
		return nil, apierror.New(apierror.NotFound, "zone %s not found", zone)
	}
	return append([]store.MachineType(nil), c.machineTypes[zone]...), nil
}

func (c *Catalog) GetMachineType(zone, name string) (store.MachineType, error) {
	for _, mt := range c.machineTypes[zone] {
		if mt.Name == name {
			return mt, nil
		}
	}
	return store.MachineType{}, apierror.New(apierror.NotFound, "machine type %s not found in zone %s", name, zone)
}
