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
	"net"

	"github.com/apparentlymart/go-cidr/cidr"
	"github.com/tidwall/buntdb"

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
)

func (s *Store) CreateSubnet(sn Subnet) error {
	return s.update(func(tx *buntdb.Tx) error {
		return setNX(tx, subnetKey(sn.ProjectID, sn.NetworkName, sn.Name), sn)
	})
}

func (s *Store) GetSubnet(project, network, name string) (Subnet, error) {
	var sn Subnet
	err := s.view(func(tx *buntdb.Tx) error {
		return get(tx, subnetKey(project, network, name), &sn)
	})
	return sn, err
}

func (s *Store) ListSubnetsByNetwork(project, network string) ([]Subnet, error) {
	var out []Subnet
	err := s.view(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(subnetNetworkPrefix(project, network)+"*", func(key, value string) bool {
			var sn Subnet
			if decodeInto(value, &sn) == nil {
				out = append(out, sn)
			}
			return true
		})
	})
	return out, err
}

func (s *Store) ListSubnetsByRegion(project, region string) ([]Subnet, error) {
	all, err := s.listAllSubnets(project)
	if err != nil {
		return nil, err
	}
	var out []Subnet
	for _, sn := range all {
		if sn.Region == region {
			out = append(out, sn)
		}
	}
	return out, nil
}

func (s *Store) listAllSubnets(project string) ([]Subnet, error) {
	var out []Subnet
	err := s.view(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("subnet:"+project+":*", func(key, value string) bool {
			var sn Subnet
			if decodeInto(value, &sn) == nil {
				out = append(out, sn)
			}
			return true
		})
	})
	return out, err
}

// AllocateIP atomically reserves the next IP offset in subnet and returns
// the address, failing ResourceExhausted once the range is depleted.
func (s *Store) AllocateIP(project, network, subnetName string) (net.IP, error) {
	var ip net.IP
	err := s.update(func(tx *buntdb.Tx) error {
		key := subnetKey(project, network, subnetName)
		var sn Subnet
		if err := get(tx, key, &sn); err != nil {
			return err
		}
		_, ipnet, err := net.ParseCIDR(sn.CIDR)
		if err != nil {
			return apierror.Wrap(apierror.Internal, err, "parse subnet cidr %s", sn.CIDR)
		}
		candidate, err := cidr.Host(ipnet, int(sn.NextOffset))
		if err != nil || !ipnet.Contains(candidate) {
			return apierror.New(apierror.ResourceExhausted, "subnet %s has no addresses left", subnetName)
		}
		sn.NextOffset++
		if err := set(tx, key, sn); err != nil {
			return err
		}
		ip = candidate
		return nil
	})
	return ip, err
}

// ReleaseIP is a no-op placeholder for rollback call sites: offsets are
// monotonic and never reused within a subnet's lifetime, so a failed
// container create simply leaves a gap rather than rewinding the counter
// (rewinding would risk handing the same address to two instances if the
// rollback and a concurrent allocation interleave).
func (s *Store) ReleaseIP(project, network, subnetName string, ip net.IP) error {
	return nil
}
