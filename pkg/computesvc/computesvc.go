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

// Package computesvc is the Compute Service: instance lifecycle tying a
// Metadata Store row to a container, IP allocation, and status
// reconciliation on every read (spec.md §4.F).
package computesvc

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/containerdriver"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/netsvc"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/store"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/zonecatalog"
)

var namePattern = regexp.MustCompile(`^[a-z]([-a-z0-9]{0,61}[a-z0-9])?$`)

// InstanceImage is the container image backing every instance; the
// emulator does not boot a real guest OS, so any long-running image works
// as the stand-in workload.
const InstanceImage = "alpine:latest"

// DefaultInternetGatewayName is the constant pseudo-resource name exposed
// by the global internetGateways list/get endpoints (spec.md §4.F).
const DefaultInternetGatewayName = "default-internet-gateway"

// NetworkInterface and AccessConfig mirror the response shape clients
// expect embedded in an Instance -- computed at read time, never stored.
type AccessConfig struct {
	Type  string `json:"type"`
	NatIP string `json:"natIP"`
}

type NetworkInterface struct {
	Network       string         `json:"network"`
	Subnetwork    string         `json:"subnetwork,omitempty"`
	NetworkIP     string         `json:"networkIP"`
	AccessConfigs []AccessConfig `json:"accessConfigs"`
}

// Service implements instance lifecycle operations.
type Service struct {
	store   *store.Store
	driver  *containerdriver.Driver
	nets    *netsvc.Service
	zones   *zonecatalog.Catalog
}

func New(st *store.Store, driver *containerdriver.Driver, nets *netsvc.Service, zones *zonecatalog.Catalog) *Service {
	return &Service{store: st, driver: driver, nets: nets, zones: zones}
}

// CreateSpec is the validated, typed request shape for instance creation,
// separated from its JSON wire representation per the source's redesign
// note on tagged request variants (spec.md §9).
type CreateSpec struct {
	Project         string
	Zone            string
	Name            string
	MachineType     string
	Network         string
	Subnetwork      string
	Labels          map[string]string
	Tags            []string
}

// Create follows the six-step ordering in spec.md §4.F: validate, resolve
// the driver network, allocate an IP, create the container, insert the
// row, and roll back the container if the row insert loses a race.
func (s *Service) Create(ctx context.Context, spec CreateSpec) (store.Instance, error) {
	if !namePattern.MatchString(spec.Name) {
		return store.Instance{}, apierror.New(apierror.InvalidArgument, "instance name %q must be a valid DNS label", spec.Name)
	}
	if _, err := s.store.GetInstanceByName(spec.Project, spec.Zone, spec.Name); err == nil {
		return store.Instance{}, apierror.New(apierror.AlreadyExists, "instance %s already exists", spec.Name)
	} else if !apierror.Is(err, apierror.NotFound) {
		return store.Instance{}, err
	}
	if !s.zones.ZoneExists(spec.Zone) {
		return store.Instance{}, apierror.New(apierror.NotFound, "zone %s not found", spec.Zone)
	}
	if _, err := s.zones.GetMachineType(spec.Zone, spec.MachineType); err != nil {
		return store.Instance{}, err
	}
	network, err := s.nets.GetNetwork(spec.Project, spec.Network)
	if err != nil {
		return store.Instance{}, err
	}
	var subnet store.Subnet
	if spec.Subnetwork != "" {
		subnet, err = s.nets.GetSubnet(spec.Project, spec.Network, spec.Subnetwork)
		if err != nil {
			return store.Instance{}, err
		}
	}

	var internalIP string
	if spec.Subnetwork != "" {
		ip, err := s.nets.AllocateIP(spec.Project, spec.Network, spec.Subnetwork)
		if err != nil {
			return store.Instance{}, err
		}
		internalIP = ip.String()
	}
	rollbackIP := func() {
		if internalIP != "" {
			_ = s.nets.ReleaseIP(spec.Project, spec.Network, spec.Subnetwork, nil)
		}
	}

	mt, _ := s.zones.GetMachineType(spec.Zone, spec.MachineType)
	containerName := fmt.Sprintf("gcpemu-%s-%s-%s", spec.Project, spec.Zone, spec.Name)
	containerID, err := s.driver.CreateContainer(ctx, containerdriver.ContainerSpec{
		Name:        containerName,
		Image:       InstanceImage,
		NetworkID:   network.DriverNetworkID,
		IPv4Address: internalIP,
		CPUs:        mt.GuestCPUs,
		MemoryMB:    mt.MemoryMB,
		Labels: map[string]string{
			"gcpemu.project":  spec.Project,
			"gcpemu.zone":     spec.Zone,
			"gcpemu.instance": spec.Name,
		},
	})
	if err != nil {
		rollbackIP()
		return store.Instance{}, err
	}
	if err := s.driver.StartContainer(ctx, containerID); err != nil {
		_ = s.driver.RemoveContainer(ctx, containerID)
		rollbackIP()
		return store.Instance{}, err
	}

	now := time.Now().UTC()
	inst := store.Instance{
		Name:          spec.Name,
		ProjectID:     spec.Project,
		Zone:          spec.Zone,
		MachineType:   spec.MachineType,
		Status:        store.StatusRunning,
		ContainerID:   containerID,
		ContainerName: containerName,
		NetworkName:   spec.Network,
		SubnetName:    spec.Subnetwork,
		InternalIP:    internalIP,
		Labels:        spec.Labels,
		Tags:          spec.Tags,
		CreateTime:    now,
		UpdateTime:    now,
	}
	_ = subnet // retained for symmetry with validation steps above

	if err := s.store.InsertInstance(inst); err != nil {
		_ = s.driver.StopContainer(ctx, containerID)
		_ = s.driver.RemoveContainer(ctx, containerID)
		rollbackIP()
		return store.Instance{}, err
	}
	return inst, nil
}

// Get fetches the instance row and reconciles its status against the
// container engine before returning (spec.md §4.F reconciliation table).
func (s *Service) Get(ctx context.Context, project, zone, name string) (store.Instance, error) {
	inst, err := s.store.GetInstanceByName(project, zone, name)
	if err != nil {
		return store.Instance{}, err
	}
	reconciled, err := s.reconcile(ctx, inst)
	if err != nil {
		// Engine unavailable: keep the prior row and annotate a warning
		// rather than failing the read (spec.md §4.F reconciliation table).
		inst.StatusWarning = err.Error()
		return inst, nil
	}
	return reconciled, nil
}

func (s *Service) List(ctx context.Context, project, zone string) ([]store.Instance, error) {
	var (
		insts []store.Instance
		err   error
	)
	if zone != "" {
		insts, err = s.store.ListInstancesByProjectZone(project, zone)
	} else {
		insts, err = s.store.ListInstancesByProject(project)
	}
	if err != nil {
		return nil, err
	}
	out := make([]store.Instance, 0, len(insts))
	for _, inst := range insts {
		reconciled, err := s.reconcile(ctx, inst)
		if err != nil {
			// Engine unavailable: keep the prior row, annotate a warning,
			// and keep listing the rest (spec.md §4.F reconciliation table).
			inst.StatusWarning = err.Error()
			out = append(out, inst)
			continue
		}
		out = append(out, reconciled)
	}
	return out, nil
}

// reconcile maps the container engine's observed state onto Instance.Status
// and persists the update before returning, per spec.md §4.F.
func (s *Service) reconcile(ctx context.Context, inst store.Instance) (store.Instance, error) {
	if inst.ContainerID == "" {
		return inst, nil
	}
	status, err := s.driver.InspectContainer(ctx, inst.ContainerID)
	if err != nil {
		return inst, err
	}
	updated := inst
	switch {
	case status.Running:
		updated.Status = store.StatusRunning
		updated.InternalIP = firstNonEmpty(status.IPv4, inst.InternalIP)
	case status.StartedAt == "" && status.FinishedAt == "":
		// InspectContainer reports a zero-value status for a container the
		// engine no longer knows about.
		updated.Status = store.StatusTerminated
		updated.ContainerID = ""
	default:
		updated.Status = store.StatusTerminated
	}
	if updated.Status == inst.Status && updated.ContainerID == inst.ContainerID && updated.InternalIP == inst.InternalIP {
		return inst, nil
	}
	updated.UpdateTime = time.Now().UTC()
	if err := s.store.ReplaceInstance(inst, updated); err != nil {
		return inst, err
	}
	return updated, nil
}

// Start transitions an instance through PROVISIONING to RUNNING.
func (s *Service) Start(ctx context.Context, project, zone, name string) (store.Instance, error) {
	inst, err := s.store.GetInstanceByName(project, zone, name)
	if err != nil {
		return store.Instance{}, err
	}
	pending := inst
	pending.Status = store.StatusProvisioning
	pending.UpdateTime = time.Now().UTC()
	if err := s.store.ReplaceInstance(inst, pending); err != nil {
		return store.Instance{}, err
	}
	if err := s.driver.StartContainer(ctx, inst.ContainerID); err != nil {
		return store.Instance{}, err
	}
	final := pending
	final.Status = store.StatusRunning
	final.UpdateTime = time.Now().UTC()
	if err := s.store.ReplaceInstance(pending, final); err != nil {
		return store.Instance{}, err
	}
	return final, nil
}

// Stop transitions an instance through STOPPING to TERMINATED.
func (s *Service) Stop(ctx context.Context, project, zone, name string) (store.Instance, error) {
	inst, err := s.store.GetInstanceByName(project, zone, name)
	if err != nil {
		return store.Instance{}, err
	}
	pending := inst
	pending.Status = store.StatusStopping
	pending.UpdateTime = time.Now().UTC()
	if err := s.store.ReplaceInstance(inst, pending); err != nil {
		return store.Instance{}, err
	}
	if err := s.driver.StopContainer(ctx, inst.ContainerID); err != nil {
		return store.Instance{}, err
	}
	final := pending
	final.Status = store.StatusTerminated
	final.UpdateTime = time.Now().UTC()
	if err := s.store.ReplaceInstance(pending, final); err != nil {
		return store.Instance{}, err
	}
	return final, nil
}

// Delete stops (if running), removes the container, then deletes the row.
func (s *Service) Delete(ctx context.Context, project, zone, name string) error {
	inst, err := s.store.GetInstanceByName(project, zone, name)
	if err != nil {
		return err
	}
	if inst.Status == store.StatusRunning || inst.Status == store.StatusProvisioning {
		_ = s.driver.StopContainer(ctx, inst.ContainerID)
	}
	if err := s.driver.RemoveContainer(ctx, inst.ContainerID); err != nil {
		return err
	}
	if inst.SubnetName != "" {
		_ = s.nets.ReleaseIP(project, inst.NetworkName, inst.SubnetName, nil)
	}
	return s.store.DeleteInstance(inst)
}

// NetworkInterfaces builds the response-only networkInterfaces[] view for
// an instance, including the constant ONE_TO_ONE_NAT accessConfig entry
// (spec.md §4.F response shape).
func NetworkInterfaces(inst store.Instance, networkSelfLink, subnetSelfLink string) []NetworkInterface {
	return []NetworkInterface{{
		Network:    networkSelfLink,
		Subnetwork: subnetSelfLink,
		NetworkIP:  inst.InternalIP,
		AccessConfigs: []AccessConfig{{
			Type:  "ONE_TO_ONE_NAT",
			NatIP: "127.0.0.1",
		}},
	}}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// NewOperationID mints an id for the synchronous-operation compatibility
// endpoints (.../operations/{op}/wait), which always report DONE.
func NewOperationID() string { return uuid.NewString() }
