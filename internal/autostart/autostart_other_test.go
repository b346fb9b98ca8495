//go:build !windows

package autostart

import (
	"errors"
	"testing"
)

func TestUnsupportedPlatform(t *testing.T) {
	if Supported() {
		t.Fatalf("expected autostart to be unsupported")
	}
	if err := Set(true, false); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported from Set(true), got %v", err)
	}
	if err := Set(false, false); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported from Set(false), got %v", err)
	}
	if Enabled() {
		t.Fatalf("expected Enabled to be false")
	}
}
