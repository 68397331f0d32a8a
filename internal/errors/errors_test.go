package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{New(CodeInvalidArgument, "All fields are required"), http.StatusBadRequest},
		{New(CodeNotFound, "Agent not found"), http.StatusNotFound},
		{Wrap(CodeStorageFailure, stdErrors.New("bad conn"), ""), http.StatusInternalServerError},
		{New(CodeConnectionExhausted, ""), http.StatusInternalServerError},
		{New(CodeUpstreamFailure, ""), http.StatusInternalServerError},
		{stdErrors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusOf(tc.err); got != tc.want {
			t.Fatalf("StatusOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestWrapKeepsCauseAndCode(t *testing.T) {
	cause := stdErrors.New("dial tcp: refused")
	err := fmt.Errorf("list agents: %w", Wrap(CodeStorageFailure, cause, ""))

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if !stdErrors.Is(err, New(CodeStorageFailure, "other")) {
		t.Fatalf("expected errors.Is to match on code")
	}
	if CodeOf(err) != CodeStorageFailure {
		t.Fatalf("unexpected code: %s", CodeOf(err))
	}
	if MessageOf(err) != "Database error" {
		t.Fatalf("unexpected message: %q", MessageOf(err))
	}
}

func TestRegisterCustomCode(t *testing.T) {
	const code Code = "TEST_TEAPOT"
	Register(code, Attributes{Message: "teapot", Severity: SeverityInfo, Status: http.StatusTeapot})

	err := New(code, "")
	if err.Message() != "teapot" {
		t.Fatalf("default message not applied: %q", err.Message())
	}
	if StatusOf(err) != http.StatusTeapot {
		t.Fatalf("unexpected status: %d", StatusOf(err))
	}
}

func TestSeverityOverride(t *testing.T) {
	err := New(CodeNotFound, "", WithSeverity(SeverityWarning), WithMetadata("code", "A001"))
	if SeverityOf(err) != SeverityWarning {
		t.Fatalf("severity override ignored")
	}
	if err.Metadata()["code"] != "A001" {
		t.Fatalf("metadata missing: %+v", err.Metadata())
	}
	if SeverityOf(stdErrors.New("x")) != SeverityCritical {
		t.Fatalf("plain errors should be critical")
	}
}
