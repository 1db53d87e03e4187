package apperr

import (
	"errors"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusBadRequest},
		{KindBadRequest, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
		{KindUnavailable, http.StatusServiceUnavailable},
		{KindUnknown, http.StatusBadRequest},
	}

	for _, tc := range cases {
		if got := New(tc.kind, "x").HTTPStatus(); got != tc.want {
			t.Fatalf("kind %d: expected status %d, got %d", tc.kind, tc.want, got)
		}
	}
}

func TestWrapPreservesUnderlyingError(t *testing.T) {
	base := errors.New("disk gone")
	err := Wrap(KindUnavailable, "lead store unavailable", base)

	if !errors.Is(err, base) {
		t.Fatal("expected wrapped error to match errors.Is")
	}
	if !Is(err, KindUnavailable) {
		t.Fatal("expected kind match")
	}
	if Is(base, KindUnavailable) {
		t.Fatal("expected plain error to have no kind")
	}
}

func TestErrorStringIncludesOp(t *testing.T) {
	err := NotFound("lead not found").WithOp("store.Get")
	if err.Error() != "store.Get: lead not found" {
		t.Fatalf("unexpected error string: %q", err.Error())
	}
}
