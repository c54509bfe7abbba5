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

// Package containerdriver is the Container Driver: it turns Instance and
// Network lifecycle operations into calls against a local Docker Engine
// (spec.md §4.B). Unlike shelling out to a compose binary, it talks to the
// Engine API directly so instance creation can report a precise,
// structured reason when the engine rejects a request.
package containerdriver

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/metrics"
)

// Driver wraps a Docker Engine API client with the narrow vocabulary the
// Compute and Network services need.
type Driver struct {
	cli *client.Client
}

// New connects to the local Docker Engine using the standard environment
// variables (DOCKER_HOST, DOCKER_CERT_PATH, ...), the same discovery the
// docker CLI itself uses.
func New() (*Driver, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, apierror.Wrap(apierror.Unavailable, err, "connect to container engine")
	}
	return &Driver{cli: cli}, nil
}

func (d *Driver) Close() error { return d.cli.Close() }

// CreateBridgeNetwork creates an isolated bridge network with the given
// IPAM subnet and gateway, returning the engine-assigned network ID
// (spec.md §4.D network creation).
func (d *Driver) CreateBridgeNetwork(ctx context.Context, name, subnetCIDR, gateway string) (string, error) {
	resp, err := d.cli.NetworkCreate(ctx, name, network.CreateOptions{
		Driver: "bridge",
		IPAM: &network.IPAM{
			Driver: "default",
			Config: []network.IPAMConfig{
				{Subnet: subnetCIDR, Gateway: gateway},
			},
		},
		Labels: map[string]string{"managed-by": "gcpemu"},
	})
	defer recordCall("create_network", err)
	if err != nil {
		return "", classify(err, "create network %s", name)
	}
	return resp.ID, nil
}

func (d *Driver) RemoveBridgeNetwork(ctx context.Context, networkID string) error {
	err := d.cli.NetworkRemove(ctx, networkID)
	defer recordCall("remove_network", err)
	if err != nil && !errdefs.IsNotFound(err) {
		return classify(err, "remove network %s", networkID)
	}
	return nil
}

// ContainerSpec describes the container backing one Instance.
type ContainerSpec struct {
	Name        string
	Image       string
	NetworkID   string
	IPv4Address string
	CPUs        int
	MemoryMB    int
	Labels      map[string]string
}

// CreateContainer creates (but does not start) a container, attached to
// NetworkID with a pinned IPv4Address so the Instance's internal IP is
// known before the container ever runs. Two-phase create-then-start lets
// the Compute Service roll back a failed start without guessing whether
// the container exists (spec.md §4.F step 5).
func (d *Driver) CreateContainer(ctx context.Context, spec ContainerSpec) (containerID string, err error) {
	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			NanoCPUs: int64(spec.CPUs) * 1_000_000_000,
			Memory:   int64(spec.MemoryMB) * 1024 * 1024,
		},
	}
	netCfg := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			spec.NetworkID: {
				IPAMConfig: &network.EndpointIPAMConfig{IPv4Address: spec.IPv4Address},
			},
		},
	}
	containerCfg := &container.Config{
		Image:  spec.Image,
		Labels: spec.Labels,
		Tty:    false,
	}
	resp, createErr := d.cli.ContainerCreate(ctx, containerCfg, hostCfg, netCfg, nil, spec.Name)
	defer recordCall("create_container", createErr)
	if createErr != nil {
		return "", classify(createErr, "create container %s", spec.Name)
	}
	return resp.ID, nil
}

func (d *Driver) StartContainer(ctx context.Context, containerID string) error {
	err := d.cli.ContainerStart(ctx, containerID, container.StartOptions{})
	defer recordCall("start_container", err)
	if err != nil {
		return classify(err, "start container %s", containerID)
	}
	return nil
}

func (d *Driver) StopContainer(ctx context.Context, containerID string) error {
	err := d.cli.ContainerStop(ctx, containerID, container.StopOptions{})
	defer recordCall("stop_container", err)
	if err != nil && !errdefs.IsNotFound(err) {
		return classify(err, "stop container %s", containerID)
	}
	return nil
}

// RemoveContainer force-removes containerID, tolerating the case where it
// was never created or was already reaped.
func (d *Driver) RemoveContainer(ctx context.Context, containerID string) error {
	if containerID == "" {
		return nil
	}
	err := d.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
	defer recordCall("remove_container", err)
	if err != nil && !errdefs.IsNotFound(err) {
		return classify(err, "remove container %s", containerID)
	}
	return nil
}

// InspectStatus is the subset of container.InspectResponse that
// reconciliation cares about.
type InspectStatus struct {
	Running    bool
	ExitCode   int
	OOMKilled  bool
	IPv4       string
	StartedAt  string
	FinishedAt string
}

// InspectContainer reports a container's current engine-observed state,
// used by the Compute Service to reconcile Instance.Status on read
// (spec.md §4.F reconciliation). A not-found container is reported as a
// zero-value status with a nil error so callers can treat it as
// TERMINATED rather than failing the read.
func (d *Driver) InspectContainer(ctx context.Context, containerID string) (InspectStatus, error) {
	info, err := d.cli.ContainerInspect(ctx, containerID)
	defer recordCall("inspect_container", err)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return InspectStatus{}, nil
		}
		return InspectStatus{}, classify(err, "inspect container %s", containerID)
	}
	var ip string
	if info.NetworkSettings != nil {
		for _, ep := range info.NetworkSettings.Networks {
			if ep.IPAddress != "" {
				ip = ep.IPAddress
				break
			}
		}
	}
	status := InspectStatus{IPv4: ip}
	if info.State != nil {
		status.Running = info.State.Running
		status.ExitCode = info.State.ExitCode
		status.OOMKilled = info.State.OOMKilled
		status.StartedAt = info.State.StartedAt
		status.FinishedAt = info.State.FinishedAt
	}
	return status, nil
}

// Ping verifies the engine is reachable, used at startup so a
// misconfigured DOCKER_HOST fails fast with a clear message.
func (d *Driver) Ping(ctx context.Context) error {
	_, err := d.cli.Ping(ctx)
	if err != nil {
		return apierror.Wrap(apierror.Unavailable, err, "ping container engine")
	}
	return nil
}

// classify maps an Engine API error onto the apierror taxonomy using
// errdefs, the same classification the Docker CLI itself relies on,
// rather than pattern-matching error strings.
func classify(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case errdefs.IsNotFound(err):
		return apierror.Wrap(apierror.NotFound, err, "%s", msg)
	case errdefs.IsConflict(err):
		return apierror.Wrap(apierror.AlreadyExists, err, "%s", msg)
	case errdefs.IsInvalidParameter(err):
		return apierror.Wrap(apierror.InvalidArgument, err, "%s", msg)
	case errdefs.IsUnauthorized(err), errdefs.IsForbidden(err):
		return apierror.Wrap(apierror.FailedPrecondition, err, "%s", msg)
	case errdefs.IsDeadline(err):
		return apierror.Wrap(apierror.DeadlineExceeded, err, "%s", msg)
	case errdefs.IsUnavailable(err), errdefs.IsSystem(err):
		return apierror.Wrap(apierror.Unavailable, err, "%s", msg)
	default:
		return apierror.Wrap(apierror.Internal, err, "%s", msg)
	}
}

// recordCall records one Container Driver invocation in the
// gcpemu_container_driver_calls_total counter (spec.md §9 component K), so
// engine flakiness shows up as a metric instead of only as log lines.
func recordCall(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ContainerDriverCalls.WithLabelValues(operation, outcome).Inc()
}

var _ io.Closer = (*Driver)(nil)
