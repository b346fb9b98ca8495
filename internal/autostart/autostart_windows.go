//go:build windows

package autostart

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/windows/registry"
)

const runKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`

// Supported reports whether launch at login can be configured here.
func Supported() bool { return true }

// Enable registers the current executable under the Run key.
func Enable(minimized bool) error {
	cmd, err := Command(minimized)
	if err != nil {
		return err
	}

	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open registry key: %w", err)
	}
	defer key.Close()

	if err := key.SetStringValue(AppName, cmd); err != nil {
		return fmt.Errorf("set registry value: %w", err)
	}
	return nil
}

// Disable removes the Run entry. A missing entry is not an error.
func Disable() error {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open registry key: %w", err)
	}
	defer key.Close()

	if err := key.DeleteValue(AppName); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return fmt.Errorf("delete registry value: %w", err)
	}
	return nil
}

// Enabled reports whether the Run entry points at the current executable.
func Enabled() bool {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	defer key.Close()

	value, _, err := key.GetStringValue(AppName)
	if err != nil {
		return false
	}
	exe, err := executable()
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.TrimPrefix(value, `"`), exe)
}
