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

package apierror

import (
	"errors"
	"testing"
)

func TestKindOfDefaultsToInternal(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != Internal {
		t.Errorf("KindOf(plain error) = %v, want %v", got, Internal)
	}
}

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	base := errors.New("disk full")
	err := Wrap(Unavailable, base, "write %s", "object")
	if got := KindOf(err); got != Unavailable {
		t.Errorf("KindOf(wrapped) = %v, want %v", got, Unavailable)
	}
	if !errors.Is(err, base) {
		t.Error("errors.Is should see through Wrap to the underlying error")
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := New(NotFound, "bucket %q not found", "b1")
	if !Is(err, NotFound) {
		t.Error("Is(NotFound err, NotFound) = false, want true")
	}
	if Is(err, AlreadyExists) {
		t.Error("Is(NotFound err, AlreadyExists) = true, want false")
	}
}

func TestWithReasonChains(t *testing.T) {
	err := New(InvalidArgument, "bad name").WithReason("badName")
	if err.Reason != "badName" {
		t.Errorf("Reason = %q, want %q", err.Reason, "badName")
	}
}

func TestErrorStringIncludesWrappedCause(t *testing.T) {
	base := errors.New("ENOSPC")
	err := Wrap(Internal, base, "write object")
	msg := err.Error()
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped error to unwrap to base")
	}
	if msg == "" {
		t.Fatal("Error() should not be empty")
	}
}
