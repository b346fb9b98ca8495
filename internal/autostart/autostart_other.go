//go:build !windows

package autostart

// Supported reports whether launch at login can be configured here.
func Supported() bool { return false }

// Enable is not available outside Windows.
func Enable(bool) error { return ErrUnsupported }

// Disable is not available outside Windows.
func Disable() error { return ErrUnsupported }

// Enabled is always false outside Windows.
func Enabled() bool { return false }
