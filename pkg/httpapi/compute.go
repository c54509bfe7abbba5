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

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/computesvc"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/store"
)

func registerComputeRoutes(mux *http.ServeMux, svc *Services) {
	registerZoneRoutes(mux, svc)
	registerNetworkRoutes(mux, svc)
	registerSubnetRoutes(mux, svc)
	registerRouteRoutes(mux, svc)
	registerInstanceRoutes(mux, svc)
	registerGatewayAndOperationRoutes(mux, svc)
}

func registerZoneRoutes(mux *http.ServeMux, svc *Services) {
	mux.HandleFunc("GET /compute/v1/projects/{project}/zones", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"kind": "compute#zoneList", "items": svc.Zones.ListZones()})
	}))

	mux.HandleFunc("GET /compute/v1/projects/{project}/zones/{zone}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		z, err := svc.Zones.GetZone(r.PathValue("zone"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, z)
	}))

	mux.HandleFunc("GET /compute/v1/projects/{project}/zones/{zone}/machineTypes", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		mts, err := svc.Zones.ListMachineTypes(r.PathValue("zone"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"kind": "compute#machineTypeList", "items": mts})
	}))

	mux.HandleFunc("GET /compute/v1/projects/{project}/zones/{zone}/machineTypes/{machineType}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		mt, err := svc.Zones.GetMachineType(r.PathValue("zone"), r.PathValue("machineType"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, mt)
	}))
}

type networkResource struct {
	Kind                  string `json:"kind"`
	Name                  string `json:"name"`
	SelfLink              string `json:"selfLink"`
	IPv4Range             string `json:"IPv4Range"`
	AutoCreateSubnetworks bool   `json:"autoCreateSubnetworks"`
	RoutingMode           string `json:"routingMode"`
	CreationTimestamp     string `json:"creationTimestamp"`
}

func toNetworkResource(svc *Services, n store.Network) networkResource {
	return networkResource{
		Kind:                  "compute#network",
		Name:                  n.Name,
		SelfLink:              svc.SelfBase + "/compute/v1/projects/" + n.ProjectID + "/global/networks/" + n.Name,
		IPv4Range:             n.CIDR,
		AutoCreateSubnetworks: n.AutoCreateSubnetworks,
		RoutingMode:           n.RoutingMode,
		CreationTimestamp:     rfc3339(n.CreateTime),
	}
}

func registerNetworkRoutes(mux *http.ServeMux, svc *Services) {
	mux.HandleFunc("POST /compute/v1/projects/{project}/global/networks", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		project := r.PathValue("project")
		var body struct {
			Name                  string `json:"name"`
			AutoCreateSubnetworks bool   `json:"autoCreateSubnetworks"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(svc, w, badJSON(err))
			return
		}
		n, err := svc.Net.CreateNetwork(r.Context(), project, body.Name, body.AutoCreateSubnetworks)
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toNetworkResource(svc, n))
	}))

	mux.HandleFunc("GET /compute/v1/projects/{project}/global/networks", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		ns, err := svc.Net.ListNetworks(r.PathValue("project"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		out := make([]networkResource, 0, len(ns))
		for _, n := range ns {
			out = append(out, toNetworkResource(svc, n))
		}
		writeJSON(w, http.StatusOK, map[string]any{"kind": "compute#networkList", "items": out})
	}))

	mux.HandleFunc("GET /compute/v1/projects/{project}/global/networks/{network}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.Net.GetNetwork(r.PathValue("project"), r.PathValue("network"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toNetworkResource(svc, n))
	}))

	mux.HandleFunc("DELETE /compute/v1/projects/{project}/global/networks/{network}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Net.DeleteNetwork(r.Context(), r.PathValue("project"), r.PathValue("network")); err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"done": true})
	}))
}

type subnetResource struct {
	Kind              string `json:"kind"`
	Name              string `json:"name"`
	SelfLink          string `json:"selfLink"`
	Network           string `json:"network"`
	Region            string `json:"region"`
	IPCIDRRange       string `json:"ipCidrRange"`
	GatewayAddress    string `json:"gatewayAddress"`
	CreationTimestamp string `json:"creationTimestamp"`
}

func toSubnetResource(svc *Services, sn store.Subnet) subnetResource {
	return subnetResource{
		Kind:              "compute#subnetwork",
		Name:              sn.Name,
		SelfLink:          svc.SelfBase + "/compute/v1/projects/" + sn.ProjectID + "/regions/" + sn.Region + "/subnetworks/" + sn.Name,
		Network:           svc.SelfBase + "/compute/v1/projects/" + sn.ProjectID + "/global/networks/" + sn.NetworkName,
		Region:            sn.Region,
		IPCIDRRange:       sn.CIDR,
		GatewayAddress:    sn.GatewayIP,
		CreationTimestamp: rfc3339(sn.CreateTime),
	}
}

func registerSubnetRoutes(mux *http.ServeMux, svc *Services) {
	mux.HandleFunc("POST /compute/v1/projects/{project}/regions/{region}/subnetworks", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		project, region := r.PathValue("project"), r.PathValue("region")
		var body struct {
			Name        string `json:"name"`
			Network     string `json:"network"`
			IPCIDRRange string `json:"ipCidrRange"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(svc, w, badJSON(err))
			return
		}
		sn, err := svc.Net.CreateSubnet(project, region, body.Network, body.Name, body.IPCIDRRange)
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSubnetResource(svc, sn))
	}))

	mux.HandleFunc("GET /compute/v1/projects/{project}/regions/{region}/subnetworks", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		sns, err := svc.Net.ListSubnetsByRegion(r.PathValue("project"), r.PathValue("region"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		out := make([]subnetResource, 0, len(sns))
		for _, sn := range sns {
			out = append(out, toSubnetResource(svc, sn))
		}
		writeJSON(w, http.StatusOK, map[string]any{"kind": "compute#subnetworkList", "items": out})
	}))

	mux.HandleFunc("GET /compute/v1/projects/{project}/regions/{region}/subnetworks/{subnet}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		sns, err := svc.Net.ListSubnetsByRegion(r.PathValue("project"), r.PathValue("region"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		name := r.PathValue("subnet")
		for _, sn := range sns {
			if sn.Name == name {
				writeJSON(w, http.StatusOK, toSubnetResource(svc, sn))
				return
			}
		}
		writeError(svc, w, apierror.New(apierror.NotFound, "subnetwork %s not found", name))
	}))
}

type routeResource struct {
	Kind              string   `json:"kind"`
	Name              string   `json:"name"`
	SelfLink          string   `json:"selfLink"`
	Network           string   `json:"network"`
	DestRange         string   `json:"destRange"`
	NextHopGateway    string   `json:"nextHopGateway,omitempty"`
	Priority          int      `json:"priority"`
	Tags              []string `json:"tags,omitempty"`
	CreationTimestamp string   `json:"creationTimestamp"`
}

func toRouteResource(svc *Services, rt store.Route) routeResource {
	return routeResource{
		Kind:              "compute#route",
		Name:              rt.Name,
		SelfLink:          svc.SelfBase + "/compute/v1/projects/" + rt.ProjectID + "/global/routes/" + rt.Name,
		Network:           svc.SelfBase + "/compute/v1/projects/" + rt.ProjectID + "/global/networks/" + rt.Network,
		DestRange:         rt.DestRange,
		NextHopGateway:    rt.NextHopGateway,
		Priority:          rt.Priority,
		Tags:              rt.Tags,
		CreationTimestamp: rfc3339(rt.CreateTime),
	}
}

func registerRouteRoutes(mux *http.ServeMux, svc *Services) {
	mux.HandleFunc("POST /compute/v1/projects/{project}/global/routes", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		project := r.PathValue("project")
		var body struct {
			Name           string   `json:"name"`
			Network        string   `json:"network"`
			DestRange      string   `json:"destRange"`
			NextHopGateway string   `json:"nextHopGateway"`
			Priority       int      `json:"priority"`
			Tags           []string `json:"tags"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(svc, w, badJSON(err))
			return
		}
		if body.Priority == 0 {
			body.Priority = 1000
		}
		rt, err := svc.Net.CreateRoute(project, body.Name, body.Network, body.DestRange, body.NextHopGateway, body.Priority, body.Tags)
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRouteResource(svc, rt))
	}))

	mux.HandleFunc("GET /compute/v1/projects/{project}/global/routes", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		rts, err := svc.Net.ListRoutes(r.PathValue("project"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		out := make([]routeResource, 0, len(rts))
		for _, rt := range rts {
			out = append(out, toRouteResource(svc, rt))
		}
		writeJSON(w, http.StatusOK, map[string]any{"kind": "compute#routeList", "items": out})
	}))

	mux.HandleFunc("GET /compute/v1/projects/{project}/global/routes/{route}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		rt, err := svc.Net.GetRoute(r.PathValue("project"), r.PathValue("route"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRouteResource(svc, rt))
	}))

	mux.HandleFunc("PATCH /compute/v1/projects/{project}/global/routes/{route}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Priority       int      `json:"priority"`
			NextHopGateway string   `json:"nextHopGateway"`
			Tags           []string `json:"tags"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(svc, w, badJSON(err))
			return
		}
		rt, err := svc.Net.UpdateRoute(r.PathValue("project"), r.PathValue("route"), body.Priority, body.NextHopGateway, body.Tags)
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRouteResource(svc, rt))
	}))

	mux.HandleFunc("DELETE /compute/v1/projects/{project}/global/routes/{route}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Net.DeleteRoute(r.PathValue("project"), r.PathValue("route")); err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"done": true})
	}))
}

type instanceResource struct {
	Kind              string                       `json:"kind"`
	Name              string                       `json:"name"`
	SelfLink          string                       `json:"selfLink"`
	Zone              string                       `json:"zone"`
	MachineType       string                       `json:"machineType"`
	Status            string                       `json:"status"`
	StatusMessage     string                       `json:"statusMessage,omitempty"`
	NetworkInterfaces []computesvc.NetworkInterface `json:"networkInterfaces"`
	Labels            map[string]string            `json:"labels,omitempty"`
	Tags              []string                     `json:"tags,omitempty"`
	CreationTimestamp string                       `json:"creationTimestamp"`
}

func toInstanceResource(svc *Services, inst store.Instance) instanceResource {
	networkSelfLink := svc.SelfBase + "/compute/v1/projects/" + inst.ProjectID + "/global/networks/" + inst.NetworkName
	subnetSelfLink := ""
	if inst.SubnetName != "" {
		if sn, err := svc.Net.GetSubnet(inst.ProjectID, inst.NetworkName, inst.SubnetName); err == nil {
			subnetSelfLink = svc.SelfBase + "/compute/v1/projects/" + inst.ProjectID + "/regions/" + sn.Region + "/subnetworks/" + inst.SubnetName
		}
	}
	return instanceResource{
		Kind:              "compute#instance",
		Name:              inst.Name,
		SelfLink:          svc.SelfBase + "/compute/v1/projects/" + inst.ProjectID + "/zones/" + inst.Zone + "/instances/" + inst.Name,
		Zone:              inst.Zone,
		MachineType:       inst.MachineType,
		Status:            string(inst.Status),
		StatusMessage:     inst.StatusWarning,
		NetworkInterfaces: computesvc.NetworkInterfaces(inst, networkSelfLink, subnetSelfLink),
		Labels:            inst.Labels,
		Tags:              inst.Tags,
		CreationTimestamp: rfc3339(inst.CreateTime),
	}
}

func registerInstanceRoutes(mux *http.ServeMux, svc *Services) {
	mux.HandleFunc("POST /compute/v1/projects/{project}/zones/{zone}/instances", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		project, zone := r.PathValue("project"), r.PathValue("zone")
		var body struct {
			Name              string            `json:"name"`
			MachineType       string            `json:"machineType"`
			Labels            map[string]string `json:"labels"`
			Tags              []string          `json:"tags"`
			NetworkInterfaces []struct {
				Network    string `json:"network"`
				Subnetwork string `json:"subnetwork"`
			} `json:"networkInterfaces"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(svc, w, badJSON(err))
			return
		}
		spec := computesvc.CreateSpec{
			Project:     project,
			Zone:        zone,
			Name:        body.Name,
			MachineType: lastSegment(body.MachineType),
			Labels:      body.Labels,
			Tags:        body.Tags,
		}
		if len(body.NetworkInterfaces) > 0 {
			// The cloud's own clients send these as selfLink URLs
			// (.../networks/vpc-a); the service layer looks up both by
			// their bare resource name.
			spec.Network = lastSegment(body.NetworkInterfaces[0].Network)
			spec.Subnetwork = lastSegment(body.NetworkInterfaces[0].Subnetwork)
		}
		inst, err := svc.Compute.Create(r.Context(), spec)
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toInstanceResource(svc, inst))
	}))

	mux.HandleFunc("GET /compute/v1/projects/{project}/zones/{zone}/instances", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		insts, err := svc.Compute.List(r.Context(), r.PathValue("project"), r.PathValue("zone"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		out := make([]instanceResource, 0, len(insts))
		for _, inst := range insts {
			out = append(out, toInstanceResource(svc, inst))
		}
		writeJSON(w, http.StatusOK, map[string]any{"kind": "compute#instanceList", "items": out})
	}))

	mux.HandleFunc("GET /compute/v1/projects/{project}/zones/{zone}/instances/{instance}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		inst, err := svc.Compute.Get(r.Context(), r.PathValue("project"), r.PathValue("zone"), r.PathValue("instance"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toInstanceResource(svc, inst))
	}))

	mux.HandleFunc("DELETE /compute/v1/projects/{project}/zones/{zone}/instances/{instance}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Compute.Delete(r.Context(), r.PathValue("project"), r.PathValue("zone"), r.PathValue("instance")); err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"done": true})
	}))

	mux.HandleFunc("POST /compute/v1/projects/{project}/zones/{zone}/instances/{instance}/start", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		inst, err := svc.Compute.Start(r.Context(), r.PathValue("project"), r.PathValue("zone"), r.PathValue("instance"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toInstanceResource(svc, inst))
	}))

	mux.HandleFunc("POST /compute/v1/projects/{project}/zones/{zone}/instances/{instance}/stop", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		inst, err := svc.Compute.Stop(r.Context(), r.PathValue("project"), r.PathValue("zone"), r.PathValue("instance"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toInstanceResource(svc, inst))
	}))
}

func registerGatewayAndOperationRoutes(mux *http.ServeMux, svc *Services) {
	gateway := func(project string) map[string]any {
		return map[string]any{
			"kind":     "compute#internetGateway",
			"name":     computesvc.DefaultInternetGatewayName,
			"selfLink": svc.SelfBase + "/compute/v1/projects/" + project + "/global/internetGateways/" + computesvc.DefaultInternetGatewayName,
		}
	}

	mux.HandleFunc("GET /compute/v1/projects/{project}/global/internetGateways", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"kind":  "compute#internetGatewayList",
			"items": []map[string]any{gateway(r.PathValue("project"))},
		})
	}))

	mux.HandleFunc("GET /compute/v1/projects/{project}/global/internetGateways/{gateway}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("gateway") != computesvc.DefaultInternetGatewayName {
			writeError(svc, w, apierror.New(apierror.NotFound, "internet gateway %s not found", r.PathValue("gateway")))
			return
		}
		writeJSON(w, http.StatusOK, gateway(r.PathValue("project")))
	}))

	// Operations are synchronous in this emulator; wait always reports DONE
	// immediately (spec.md §4.F "Operations wait" compatibility endpoint).
	mux.HandleFunc("POST /compute/v1/projects/{project}/zones/{zone}/operations/{op}/wait", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"kind":          "compute#operation",
			"id":            r.PathValue("op"),
			"status":        "DONE",
			"progress":      100,
			"zone":          r.PathValue("zone"),
			"operationType": "wait",
		})
	}))
}
