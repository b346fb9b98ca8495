package autostart

import (
	"errors"
	"fmt"
	"os"
)

// AppName is the registry value name under the Run key.
const AppName = "MechvibesDX"

// MinimizedFlag is appended to the launch command when the app should start
// hidden in the tray.
const MinimizedFlag = "--minimized"

// ErrUnsupported is returned on platforms without launch-at-login support.
var ErrUnsupported = errors.New("auto startup is only supported on Windows")

var (
	osExecutable = os.Executable
	executable   = osExecutable
)

// Command builds the launch command stored for the current executable.
func Command(minimized bool) (string, error) {
	exe, err := executable()
	if err != nil {
		return "", fmt.Errorf("get executable path: %w", err)
	}
	cmd := fmt.Sprintf(`"%s"`, exe)
	if minimized {
		cmd += " " + MinimizedFlag
	}
	return cmd, nil
}

// Set enables or disables launch at login.
func Set(enabled, minimized bool) error {
	if enabled {
		return Enable(minimized)
	}
	return Disable()
}

// Registry exposes the package functions as a value so callers can depend on
// an interface and substitute it in tests.
type Registry struct{}

// Supported reports whether launch at login can be configured here.
func (Registry) Supported() bool { return Supported() }

// Enabled reports whether launch at login is currently registered.
func (Registry) Enabled() bool { return Enabled() }

// Set enables or disables launch at login.
func (Registry) Set(enabled, minimized bool) error { return Set(enabled, minimized) }
