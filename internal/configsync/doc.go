// Package configsync keeps an in-memory view of the settings store fresh by
// polling it. Each Synchronizer polls independently; two of them may disagree
// for up to one interval. Writes made through a Synchronizer are visible to
// it immediately and to everyone else on their next poll.
package configsync
