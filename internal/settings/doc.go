// Package settings defines the persisted application settings snapshot, its
// defaults, the theme selector, and the normalization applied before writes.
// A Snapshot is a value: readers receive copies and writers go through the
// store, never through a shared instance.
package settings
