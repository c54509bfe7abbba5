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

// Package netsvc is the Network Service: VPC and subnet lifecycle, CIDR
// validation, and the Docker-network mapping underneath it (spec.md §4.E).
package netsvc

import (
	"context"
	"net"
	"regexp"
	"time"

	"github.com/apparentlymart/go-cidr/cidr"

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/containerdriver"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/store"
)

const (
	// DefaultNetworkName is the reserved, undeletable per-project VPC name.
	DefaultNetworkName = "default"
	// DefaultNetworkCIDR is the range assigned to every project's default
	// network, matching the public cloud's own default allocation.
	DefaultNetworkCIDR = "10.128.0.0/9"
	// customNetworkCIDR is the encompassing range given to every
	// custom-mode VPC. It is wide enough to hold the standard RFC 1918
	// ranges callers post subnets in (e.g. 10.0.0.0/24), and its overlap
	// with DefaultNetworkCIDR is harmless since subnet containment is
	// checked per-network, not across networks.
	customNetworkCIDR = "10.0.0.0/8"
	// vendorPrefix namespaces every engine-level bridge this emulator
	// creates so it can be told apart from unrelated host networks.
	vendorPrefix = "gcpemu"
)

var dnsLabelPattern = regexp.MustCompile(`^[a-z]([-a-z0-9]{0,61}[a-z0-9])?$`)

// Service implements VPC and subnet lifecycle operations.
type Service struct {
	store  *store.Store
	driver *containerdriver.Driver
}

func New(st *store.Store, driver *containerdriver.Driver) *Service {
	return &Service{store: st, driver: driver}
}

// EnsureDefaultNetwork idempotently inserts project's "default" network,
// mapped to the engine's built-in bridge rather than a dedicated one
// (spec.md §4.E). Safe to call concurrently for distinct projects.
func (s *Service) EnsureDefaultNetwork(ctx context.Context, project string) (store.Network, error) {
	n := store.Network{
		Name:                  DefaultNetworkName,
		ProjectID:             project,
		CIDR:                  DefaultNetworkCIDR,
		DriverNetworkID:       "bridge",
		AutoCreateSubnetworks: true,
		RoutingMode:           "REGIONAL",
		CreateTime:            time.Now().UTC(),
	}
	created, err := s.store.EnsureDefaultNetwork(n)
	if err != nil {
		return store.Network{}, err
	}
	if created {
		return n, nil
	}
	return s.store.GetNetwork(project, DefaultNetworkName)
}

// CreateNetwork validates the name, allocates a bridge on the engine, and
// only then inserts the metadata row -- an engine failure never leaves a
// dangling DB row (spec.md §4.E, §4.B ordering).
func (s *Service) CreateNetwork(ctx context.Context, project, name string, autoCreateSubnetworks bool) (store.Network, error) {
	if name == DefaultNetworkName {
		return store.Network{}, apierror.New(apierror.InvalidArgument, "network name %q is reserved", name)
	}
	if !validDNSLabel(name) {
		return store.Network{}, apierror.New(apierror.InvalidArgument, "network name %q must be a valid DNS label", name)
	}
	if _, err := s.store.GetProject(project); err != nil {
		return store.Network{}, err
	}

	bridgeName := vendorPrefix + "-" + project + "-" + name
	// CreateNetwork's contract takes no caller-supplied CIDR; every custom
	// VPC gets the same encompassing address space, wide enough to accept
	// subnets in the standard private ranges; subnets under it are
	// validated against this network's own CIDR, not other networks', so
	// reuse here does not create cross-network collisions.
	cidrBlock := customNetworkCIDR
	_, gatewayNet, _ := net.ParseCIDR(cidrBlock)
	gatewayIP, _ := cidr.Host(gatewayNet, 1)

	driverID, err := s.driver.CreateBridgeNetwork(ctx, bridgeName, cidrBlock, gatewayIP.String())
	if err != nil {
		return store.Network{}, err
	}

	n := store.Network{
		Name:                  name,
		ProjectID:             project,
		CIDR:                  cidrBlock,
		DriverNetworkID:       driverID,
		AutoCreateSubnetworks: autoCreateSubnetworks,
		RoutingMode:           "REGIONAL",
		CreateTime:            time.Now().UTC(),
	}
	if err := s.store.CreateNetwork(n); err != nil {
		_ = s.driver.RemoveBridgeNetwork(ctx, driverID)
		return store.Network{}, err
	}
	return n, nil
}

func (s *Service) GetNetwork(project, name string) (store.Network, error) {
	return s.store.GetNetwork(project, name)
}

func (s *Service) ListNetworks(project string) ([]store.Network, error) {
	return s.store.ListNetworks(project)
}

// DeleteNetwork rejects deletion of "default", rejects if any instance
// still references the network, then removes the engine bridge before the
// metadata row (spec.md §4.E, invariant 4).
func (s *Service) DeleteNetwork(ctx context.Context, project, name string) error {
	if name == DefaultNetworkName {
		return apierror.New(apierror.FailedPrecondition, "network %q is reserved and cannot be deleted", name)
	}
	n, err := s.store.GetNetwork(project, name)
	if err != nil {
		return err
	}
	count, err := s.store.CountInstancesOnNetwork(project, name)
	if err != nil {
		return err
	}
	if count > 0 {
		return apierror.New(apierror.FailedPrecondition, "network %q has %d attached instance(s)", name, count)
	}
	if err := s.driver.RemoveBridgeNetwork(ctx, n.DriverNetworkID); err != nil {
		return err
	}
	return s.store.DeleteNetwork(project, name)
}

// CreateSubnet validates CIDR syntax, containment in the parent network,
// and non-overlap with sibling subnets in one pass via
// cidr.VerifyNoOverlap, then computes the gateway as the first host
// address (spec.md §4.E).
func (s *Service) CreateSubnet(project, region, networkName, name, cidrRange string) (store.Subnet, error) {
	if !validDNSLabel(name) {
		return store.Subnet{}, apierror.New(apierror.InvalidArgument, "subnet name %q must be a valid DNS label", name)
	}
	network, err := s.store.GetNetwork(project, networkName)
	if err != nil {
		return store.Subnet{}, err
	}
	_, newNet, parseErr := net.ParseCIDR(cidrRange)
	if parseErr != nil {
		return store.Subnet{}, apierror.New(apierror.InvalidArgument, "invalid CIDR %q", cidrRange)
	}
	_, parentNet, err := net.ParseCIDR(network.CIDR)
	if err != nil {
		return store.Subnet{}, apierror.Wrap(apierror.Internal, err, "parse network cidr %s", network.CIDR)
	}

	siblings, err := s.store.ListSubnetsByNetwork(project, networkName)
	if err != nil {
		return store.Subnet{}, err
	}
	candidates := []*net.IPNet{newNet}
	for _, sib := range siblings {
		if sib.Name == name {
			return store.Subnet{}, apierror.New(apierror.AlreadyExists, "subnet %s already exists", name)
		}
		_, sibNet, err := net.ParseCIDR(sib.CIDR)
		if err != nil {
			continue
		}
		candidates = append(candidates, sibNet)
	}
	if err := cidr.VerifyNoOverlap(candidates, parentNet); err != nil {
		return store.Subnet{}, apierror.Wrap(apierror.FailedPrecondition, err,
			"cidr %s must be contained in network %s and not overlap sibling subnets", cidrRange, network.CIDR)
	}

	gatewayIP, err := cidr.Host(newNet, 1)
	if err != nil {
		return store.Subnet{}, apierror.Wrap(apierror.InvalidArgument, err, "compute gateway for %s", cidrRange)
	}

	sn := store.Subnet{
		Name:        name,
		ProjectID:   project,
		NetworkName: networkName,
		Region:      region,
		CIDR:        cidrRange,
		GatewayIP:   gatewayIP.String(),
		NextOffset:  2,
		CreateTime:  time.Now().UTC(),
	}
	if err := s.store.CreateSubnet(sn); err != nil {
		return store.Subnet{}, err
	}
	return sn, nil
}

func (s *Service) GetSubnet(project, network, name string) (store.Subnet, error) {
	return s.store.GetSubnet(project, network, name)
}

func (s *Service) ListSubnetsByRegion(project, region string) ([]store.Subnet, error) {
	return s.store.ListSubnetsByRegion(project, region)
}

// AllocateIP delegates to the metadata store's row-locked counter.
func (s *Service) AllocateIP(project, network, subnet string) (net.IP, error) {
	return s.store.AllocateIP(project, network, subnet)
}

func (s *Service) ReleaseIP(project, network, subnet string, ip net.IP) error {
	return s.store.ReleaseIP(project, network, subnet, ip)
}

// CreateRoute inserts a metadata-only route (spec.md §6); the emulator
// never consults it for actual packet forwarding.
func (s *Service) CreateRoute(project, name, network, destRange, nextHopGateway string, priority int, tags []string) (store.Route, error) {
	if !validDNSLabel(name) {
		return store.Route{}, apierror.New(apierror.InvalidArgument, "route name %q must be a valid DNS label", name)
	}
	if _, err := s.store.GetNetwork(project, network); err != nil {
		return store.Route{}, err
	}
	if _, _, err := net.ParseCIDR(destRange); err != nil {
		return store.Route{}, apierror.New(apierror.InvalidArgument, "invalid destRange %q", destRange)
	}
	r := store.Route{
		Name:           name,
		ProjectID:      project,
		Network:        network,
		DestRange:      destRange,
		NextHopGateway: nextHopGateway,
		Priority:       priority,
		Tags:           tags,
		CreateTime:     time.Now().UTC(),
	}
	if err := s.store.CreateRoute(r); err != nil {
		return store.Route{}, err
	}
	return r, nil
}

func (s *Service) GetRoute(project, name string) (store.Route, error) {
	return s.store.GetRoute(project, name)
}

func (s *Service) ListRoutes(project string) ([]store.Route, error) {
	return s.store.ListRoutes(project)
}

// UpdateRoute replaces priority, next-hop, and tags on an existing route;
// name, network, and destRange are immutable once created.
func (s *Service) UpdateRoute(project, name string, priority int, nextHopGateway string, tags []string) (store.Route, error) {
	r, err := s.store.GetRoute(project, name)
	if err != nil {
		return store.Route{}, err
	}
	r.Priority = priority
	r.NextHopGateway = nextHopGateway
	r.Tags = tags
	if err := s.store.UpdateRoute(r); err != nil {
		return store.Route{}, err
	}
	return r, nil
}

func (s *Service) DeleteRoute(project, name string) error {
	return s.store.DeleteRoute(project, name)
}

func validDNSLabel(name string) bool {
	return len(name) >= 1 && len(name) <= 63 && dnsLabelPattern.MatchString(name)
}
