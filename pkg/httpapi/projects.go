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

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/store"
)

type projectResource struct {
	Kind          string `json:"kind"`
	ProjectID     string `json:"projectId"`
	Name          string `json:"name"`
	ProjectNumber int64  `json:"projectNumber,omitempty"`
	CreateTime    string `json:"createTime"`
	SelfLink      string `json:"selfLink"`
}

func toProjectResource(p store.Project) projectResource {
	return projectResource{
		Kind:          "cloudresourcemanager#project",
		ProjectID:     p.ID,
		Name:          p.DisplayName,
		ProjectNumber: p.ProjectNumber,
		CreateTime:    rfc3339(p.CreateTime),
		SelfLink:      "/cloudresourcemanager/v1/projects/" + p.ID,
	}
}

func registerProjectRoutes(mux *http.ServeMux, svc *Services) {
	mux.HandleFunc("POST /cloudresourcemanager/v1/projects", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ProjectID string `json:"projectId"`
			Name      string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(svc, w, badJSON(err))
			return
		}
		p, err := svc.ID.CreateProject(r.Context(), body.ProjectID, body.Name)
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProjectResource(p))
	}))

	mux.HandleFunc("GET /cloudresourcemanager/v1/projects", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		ps, err := svc.ID.ListProjects()
		if err != nil {
			writeError(svc, w, err)
			return
		}
		out := make([]projectResource, 0, len(ps))
		for _, p := range ps {
			out = append(out, toProjectResource(p))
		}
		writeJSON(w, http.StatusOK, map[string]any{"projects": out})
	}))

	mux.HandleFunc("GET /cloudresourcemanager/v1/projects/{id}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.ID.GetProject(r.PathValue("id"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProjectResource(p))
	}))

	mux.HandleFunc("DELETE /cloudresourcemanager/v1/projects/{id}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ID.DeleteProject(r.PathValue("id")); err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"done": true})
	}))
}

type serviceAccountResource struct {
	Kind           string `json:"kind"`
	Name           string `json:"name"`
	ProjectID      string `json:"projectId"`
	UniqueID       string `json:"uniqueId"`
	Email          string `json:"email"`
	DisplayName    string `json:"displayName"`
	Description    string `json:"description,omitempty"`
	Disabled       bool   `json:"disabled"`
	OAuth2ClientID string `json:"oauth2ClientId"`
}

func toServiceAccountResource(sa store.ServiceAccount) serviceAccountResource {
	return serviceAccountResource{
		Kind:           "iam#serviceAccount",
		Name:           "projects/" + sa.ProjectID + "/serviceAccounts/" + sa.Email,
		ProjectID:      sa.ProjectID,
		UniqueID:       sa.UniqueID,
		Email:          sa.Email,
		DisplayName:    sa.DisplayName,
		Description:    sa.Description,
		Disabled:       sa.Disabled,
		OAuth2ClientID: sa.OAuth2ClientID,
	}
}

func registerIdentityRoutes(mux *http.ServeMux, svc *Services) {
	mux.HandleFunc("POST /v1/projects/{project}/serviceAccounts", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		project := r.PathValue("project")
		var body struct {
			AccountID      string `json:"accountId"`
			ServiceAccount struct {
				DisplayName string `json:"displayName"`
				Description string `json:"description"`
			} `json:"serviceAccount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(svc, w, badJSON(err))
			return
		}
		sa, err := svc.ID.CreateServiceAccount(project, body.AccountID, body.ServiceAccount.DisplayName, body.ServiceAccount.Description)
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toServiceAccountResource(sa))
	}))

	mux.HandleFunc("GET /v1/projects/{project}/serviceAccounts", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		sas, err := svc.ID.ListServiceAccounts(r.PathValue("project"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		out := make([]serviceAccountResource, 0, len(sas))
		for _, sa := range sas {
			out = append(out, toServiceAccountResource(sa))
		}
		writeJSON(w, http.StatusOK, map[string]any{"accounts": out})
	}))

	mux.HandleFunc("GET /v1/projects/{project}/serviceAccounts/{email}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		sa, err := svc.ID.GetServiceAccount(r.PathValue("project"), r.PathValue("email"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toServiceAccountResource(sa))
	}))

	mux.HandleFunc("DELETE /v1/projects/{project}/serviceAccounts/{email}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		sa, err := svc.ID.GetServiceAccount(r.PathValue("project"), r.PathValue("email"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		if err := svc.ID.DeleteServiceAccount(sa.ProjectID, sa.AccountID); err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"done": true})
	}))

	// keys always returns an empty array for client compatibility (spec.md §4.D).
	mux.HandleFunc("GET /v1/projects/{project}/serviceAccounts/{email}/keys", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"keys": []struct{}{}})
	}))
}
