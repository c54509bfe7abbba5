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

// Package httpapi is the HTTP Surface: URL routing conforming to the
// cloud's REST paths, request parsing, JSON response shaping, and error
// mapping (spec.md §4.H, §6). It carries no business logic beyond
// parameter shaping -- every decision is made by the service layer it
// wraps.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/computesvc"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/idsvc"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/metrics"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/netsvc"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/storagesvc"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/zonecatalog"
)

// Services bundles the explicit dependencies every handler needs,
// constructed once at startup and threaded through instead of being
// reached for as package globals (spec.md §9 "Global mutable state").
type Services struct {
	ID       *idsvc.Service
	Net      *netsvc.Service
	Compute  *computesvc.Service
	Storage  *storagesvc.Service
	Zones    *zonecatalog.Catalog
	SelfBase string
	Logger   *log.Logger
	Deadline time.Duration
}

// NewMux builds the full routing table named in spec.md §6 on top of the
// standard library's method-and-wildcard ServeMux (Go 1.22+).
func NewMux(svc *Services) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	registerProjectRoutes(mux, svc)
	registerIdentityRoutes(mux, svc)
	registerComputeRoutes(mux, svc)
	registerStorageRoutes(mux, svc)

	return mux
}

// Instrumented wraps mux so every request is attributed to its matched
// route pattern in the Prometheus collectors (spec.md §9 component K),
// rather than the raw path, which would blow up cardinality on any
// wildcard segment (bucket names, object names, instance names).
func Instrumented(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.InstrumentRoute(pattern, mux.ServeHTTP)(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// withDeadline wraps a handler with the per-request deadline named in
// spec.md §5; on expiry the handler's own context.Context is canceled so
// in-flight engine/DB/file calls can unwind before the client gets a
// DeadlineExceeded response.
func withDeadline(svc *Services, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc.Deadline <= 0 {
			h(w, r)
			return
		}
		ctx, cancel := contextWithTimeout(r, svc.Deadline)
		defer cancel()
		h(w, r.WithContext(ctx))
	}
}

// writeJSON serializes v as the response body, matching the cloud's
// convention of always returning a JSON document, even for errors.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorEnvelope matches the storage.v1 error shape spec.md §7 mandates as
// the single envelope used across every family.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Errors  []errorDetail `json:"errors"`
}

type errorDetail struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
	Domain  string `json:"domain"`
}

// writeError maps an apierror.Kind to its HTTP status (spec.md §7) and
// writes the error envelope; unclassified errors are logged server-side
// but never leak their detail to the client.
func writeError(svc *Services, w http.ResponseWriter, err error) {
	kind := apierror.KindOf(err)
	status := statusFor(kind)
	reason := string(kind)
	if ae, ok := err.(*apierror.Error); ok && ae.Reason != "" {
		reason = ae.Reason
	}
	if svc.Logger != nil && status >= 500 {
		svc.Logger.Printf("internal error: %v", err)
	}
	msg := err.Error()
	if kind == apierror.Internal {
		msg = "internal error"
	}
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    status,
		Message: msg,
		Errors: []errorDetail{{
			Reason:  reason,
			Message: msg,
			Domain:  "global",
		}},
	}})
}

func statusFor(kind apierror.Kind) int {
	switch kind {
	case apierror.InvalidArgument, apierror.PathTraversal:
		return http.StatusBadRequest
	case apierror.NotFound:
		return http.StatusNotFound
	case apierror.AlreadyExists, apierror.FailedPrecondition:
		return http.StatusConflict
	case apierror.ResourceExhausted:
		return http.StatusTooManyRequests
	case apierror.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case apierror.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func rfc3339(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// badJSON wraps a request-body decode failure as the InvalidArgument kind
// so it renders as a 400 through the same error envelope as every other
// validation failure.
func badJSON(err error) error {
	return apierror.Wrap(apierror.InvalidArgument, err, "malformed request body")
}
