package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Built-in theme names as they appear in config.json.
const (
	ThemeLight  = "Light"
	ThemeDark   = "Dark"
	ThemeSystem = "System"
)

var builtInThemes = []string{
	ThemeLight, ThemeDark, ThemeSystem,
	"Cupcake", "Bumblebee", "Emerald", "Corporate", "Synthwave", "Retro",
	"Cyberpunk", "Valentine", "Halloween", "Garden", "Forest", "Aqua", "Lofi",
	"Pastel", "Fantasy", "Wireframe", "Black", "Luxury", "Dracula", "Cmyk",
	"Autumn", "Business", "Acid", "Lemonade", "Night", "Coffee", "Winter",
	"Dim", "Nord", "Sunset", "Abyss", "Silk", "Caramellatte",
}

// ErrUnknownTheme is returned when a built-in theme name is not recognised.
var ErrUnknownTheme = errors.New("unknown built-in theme")

// BuiltInThemes returns every built-in theme name.
func BuiltInThemes() []string {
	return slices.Clone(builtInThemes)
}

// Theme selects either a built-in theme or a user-defined one by name.
// Exactly one of the two fields is set.
type Theme struct {
	BuiltIn string
	Custom  string
}

// BuiltIn selects a built-in theme.
func BuiltIn(name string) Theme { return Theme{BuiltIn: name} }

// Custom selects a user-defined theme.
func Custom(name string) Theme { return Theme{Custom: name} }

// IsCustom reports whether the theme refers to a user-defined theme.
func (t Theme) IsCustom() bool { return t.Custom != "" }

// DaisyTheme returns the CSS theme identifier used by the renderer.
func (t Theme) DaisyTheme() string {
	if t.IsCustom() {
		return "custom-" + t.Custom
	}
	if t.BuiltIn == "" || t.BuiltIn == ThemeSystem {
		return "light"
	}
	return strings.ToLower(t.BuiltIn)
}

func (t Theme) String() string {
	if t.IsCustom() {
		return "custom:" + t.Custom
	}
	return t.BuiltIn
}

type themeJSON struct {
	BuiltIn *string `json:"BuiltIn,omitempty"`
	Custom  *string `json:"Custom,omitempty"`
}

// MarshalJSON writes the externally tagged form, e.g. {"BuiltIn":"Dark"}.
func (t Theme) MarshalJSON() ([]byte, error) {
	if t.IsCustom() {
		return json.Marshal(themeJSON{Custom: &t.Custom})
	}
	name := t.BuiltIn
	if name == "" {
		name = ThemeSystem
	}
	return json.Marshal(themeJSON{BuiltIn: &name})
}

// UnmarshalJSON accepts the tagged object form and a bare string naming a
// built-in theme.
func (t *Theme) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		return t.setBuiltIn(bare)
	}

	var raw themeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode theme: %w", err)
	}
	switch {
	case raw.Custom != nil && *raw.Custom != "":
		*t = Custom(*raw.Custom)
		return nil
	case raw.BuiltIn != nil:
		return t.setBuiltIn(*raw.BuiltIn)
	default:
		return fmt.Errorf("decode theme: %s", string(data))
	}
}

func (t *Theme) setBuiltIn(name string) error {
	for _, candidate := range builtInThemes {
		if strings.EqualFold(candidate, name) {
			*t = BuiltIn(candidate)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownTheme, name)
}
