package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidPatch is returned when a patch is not a JSON object or does not
// fit the snapshot's field types.
var ErrInvalidPatch = errors.New("invalid settings patch")

// storeOwnedFields are stamped by the store and never taken from a patch.
var storeOwnedFields = []string{"last_updated", "version", "commit"}

// replacedMaps lists map fields a patch replaces wholesale instead of merging
// into, so keys can be removed.
var replacedMaps = map[string]func(*Snapshot){
	"ambiance_active_sounds": func(s *Snapshot) { s.AmbianceActiveSounds = nil },
}

// Patch is a partial settings document, such as the body of a config PATCH or
// the argument of the CLI set command. Fields it names overwrite the snapshot;
// nested objects merge; maps are replaced.
type Patch struct {
	fields map[string]json.RawMessage
	data   []byte
}

// ParsePatch decodes a JSON object and drops the fields owned by the store.
func ParsePatch(data []byte) (Patch, error) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&fields); err != nil || fields == nil {
		return Patch{}, fmt.Errorf("%w: must be a JSON object", ErrInvalidPatch)
	}
	for _, name := range storeOwnedFields {
		delete(fields, name)
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return Patch{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return Patch{fields: fields, data: encoded}, nil
}

// Has reports whether the patch sets the named JSON field.
func (p Patch) Has(field string) bool {
	_, ok := p.fields[field]
	return ok
}

// Apply writes the patch over s. On error s is left unchanged.
func (p Patch) Apply(s *Snapshot) error {
	next := s.Clone()
	for field, reset := range replacedMaps {
		if p.Has(field) {
			reset(&next)
		}
	}
	if err := json.Unmarshal(p.data, &next); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	*s = next
	return nil
}
