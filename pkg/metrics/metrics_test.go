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

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStatusClassBuckets(t *testing.T) {
	cases := map[int]string{
		200: "2xx",
		204: "2xx",
		301: "3xx",
		404: "4xx",
		429: "4xx",
		500: "5xx",
		503: "5xx",
	}
	for status, want := range cases {
		if got := statusClass(status); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", status, got, want)
		}
	}
}

func TestInstrumentRouteRecordsRequestsTotal(t *testing.T) {
	h := InstrumentRoute("GET /test-route", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	req := httptest.NewRequest(http.MethodGet, "/test-route", nil)
	rec := httptest.NewRecorder()

	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET /test-route", "4xx"))
	h(rec, req)
	after := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET /test-route", "4xx"))

	if after != before+1 {
		t.Errorf("RequestsTotal{route=GET /test-route,status=4xx} = %v, want %v", after, before+1)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("recorded status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestStatusWriterDefaultsTo200WhenWriteHeaderNeverCalled(t *testing.T) {
	h := InstrumentRoute("GET /test-default-status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	req := httptest.NewRequest(http.MethodGet, "/test-default-status", nil)

	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET /test-default-status", "2xx"))
	h(httptest.NewRecorder(), req)
	after := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET /test-default-status", "2xx"))

	if after != before+1 {
		t.Errorf("RequestsTotal{route=GET /test-default-status,status=2xx} = %v, want %v", after, before+1)
	}
}
