package theme

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"
)

// FileName is the name of the themes document inside the data directory.
const FileName = "themes.json"

var (
	// ErrThemeNotFound is returned when a custom theme does not exist.
	ErrThemeNotFound = errors.New("theme not found")
	// ErrInvalidThemeName is returned for names that cannot be used as CSS identifiers.
	ErrInvalidThemeName = errors.New("theme name must be 1-64 characters of letters, digits, '-' or '_'")
)

var themeNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// CustomTheme is a user-defined stylesheet selectable like a built-in theme.
type CustomTheme struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CSS         string    `json:"css"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Themes is the persisted collection of custom themes.
type Themes struct {
	CustomThemes map[string]CustomTheme `json:"custom_themes"`
	LastUpdated  time.Time              `json:"last_updated"`
}

// Default returns an empty collection.
func Default() Themes {
	return Themes{CustomThemes: map[string]CustomTheme{}}
}

// Clone returns a copy that shares no map with t.
func (t Themes) Clone() Themes {
	out := t
	out.CustomThemes = maps.Clone(t.CustomThemes)
	if out.CustomThemes == nil {
		out.CustomThemes = map[string]CustomTheme{}
	}
	return out
}

// Get looks up a custom theme by name.
func (t Themes) Get(name string) (CustomTheme, bool) {
	ct, ok := t.CustomThemes[name]
	return ct, ok
}

// List returns the custom themes ordered by name.
func (t Themes) List() []CustomTheme {
	names := slices.Sorted(maps.Keys(t.CustomThemes))
	out := make([]CustomTheme, 0, len(names))
	for _, name := range names {
		out = append(out, t.CustomThemes[name])
	}
	return out
}

// Upsert creates or replaces a custom theme, keeping the original creation time.
func (t *Themes) Upsert(name, description, css string, now time.Time) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if t.CustomThemes == nil {
		t.CustomThemes = map[string]CustomTheme{}
	}
	created := now
	if existing, ok := t.CustomThemes[name]; ok {
		created = existing.CreatedAt
	}
	t.CustomThemes[name] = CustomTheme{
		Name:        name,
		Description: strings.TrimSpace(description),
		CSS:         css,
		CreatedAt:   created,
		UpdatedAt:   now,
	}
	return nil
}

// Delete removes a custom theme.
func (t *Themes) Delete(name string) error {
	if _, ok := t.CustomThemes[name]; !ok {
		return fmt.Errorf("%w: %q", ErrThemeNotFound, name)
	}
	delete(t.CustomThemes, name)
	return nil
}

// ValidateName checks that name is usable as a custom theme identifier.
func ValidateName(name string) error {
	if !themeNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidThemeName, name)
	}
	return nil
}
