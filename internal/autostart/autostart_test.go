package autostart

import (
	"errors"
	"testing"
)

func stubExecutable(t *testing.T, path string, err error) {
	t.Helper()

	t.Cleanup(func() {
		executable = osExecutable
	})
	executable = func() (string, error) {
		return path, err
	}
}

func TestCommand(t *testing.T) {
	stubExecutable(t, `C:\Program Files\MechvibesDX\mechvibes.exe`, nil)

	got, err := Command(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := `"C:\Program Files\MechvibesDX\mechvibes.exe"`; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	got, err = Command(true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := `"C:\Program Files\MechvibesDX\mechvibes.exe" --minimized`; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestCommandPropagatesExecutableError(t *testing.T) {
	boom := errors.New("boom")
	stubExecutable(t, "", boom)

	if _, err := Command(false); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped executable error, got %v", err)
	}
}
