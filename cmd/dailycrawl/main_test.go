package main

import (
	"errors"
	"testing"

	"resintel/internal/errs"
)

func TestExitForMapsErrorToProcessError(t *testing.T) {
	if got := exitFor(nil); got != errs.ExitSuccess {
		t.Fatalf("exitFor(nil) = %v, want ExitSuccess", got)
	}
	if got := exitFor(errors.New("boom")); got != errs.ExitProcessError {
		t.Fatalf("exitFor(err) = %v, want ExitProcessError", got)
	}
}
