package settings

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	maxVolume         = 2.0 // 200% with volume boost
	maxAmbianceVolume = 1.0
	maxMusicVolume    = 100.0
)

// Normalize returns a copy of s with color strings canonicalized and volumes
// clamped to their valid ranges. It is applied before every write.
func (s Snapshot) Normalize() Snapshot {
	out := s.Clone()

	out.Volume = clamp(out.Volume, 0, maxVolume)
	out.MouseVolume = clamp(out.MouseVolume, 0, maxVolume)
	out.AmbianceGlobalVolume = clamp(out.AmbianceGlobalVolume, 0, maxAmbianceVolume)
	out.MusicPlayer.Volume = clamp(out.MusicPlayer.Volume, 0, maxMusicVolume)
	for id, v := range out.AmbianceActiveSounds {
		out.AmbianceActiveSounds[id] = clamp(v, 0, maxAmbianceVolume)
	}

	logo := &out.LogoCustomization
	logo.BorderColor = NormalizeColor(logo.BorderColor)
	logo.TextColor = NormalizeColor(logo.TextColor)
	logo.ShadowColor = NormalizeColor(logo.ShadowColor)
	logo.BackgroundColor = NormalizeColor(logo.BackgroundColor)
	logo.MutedBackground = NormalizeColor(logo.MutedBackground)
	out.BackgroundCustomization.BackgroundColor = NormalizeColor(out.BackgroundCustomization.BackgroundColor)

	if out.EnabledKeyboards == nil {
		out.EnabledKeyboards = []string{}
	}
	if out.EnabledMice == nil {
		out.EnabledMice = []string{}
	}
	if out.AmbianceActiveSounds == nil {
		out.AmbianceActiveSounds = map[string]float32{}
	}
	return out
}

// NormalizeColor trims a CSS color value and rewrites hex colors as
// lowercase #rrggbb. Anything that is not a 3 or 6 digit hex color, such as
// var(--color-base-200) or an #rrggbbaa value, is only trimmed.
func NormalizeColor(value string) string {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "#") || (len(value) != 4 && len(value) != 7) {
		return value
	}
	c, err := colorful.Hex(value)
	if err != nil {
		return value
	}
	return c.Hex()
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
