package settings

import (
	"maps"
	"slices"
	"time"
)

// Version is stamped into freshly created snapshots. Overridden at build time.
var Version = "0.4.0"

// MusicPlayerConfig holds the persisted music player state.
type MusicPlayerConfig struct {
	CurrentTrackID   *string `json:"current_track_id"`
	Volume           float32 `json:"volume"` // 0..100
	IsMuted          bool    `json:"is_muted"`
	AutoPlay         bool    `json:"auto_play"`
	MusicLastUpdated uint64  `json:"music_last_updated"`
}

// LogoCustomization describes colors and images used by the logo widget.
type LogoCustomization struct {
	BorderColor             string  `json:"border_color"`
	TextColor               string  `json:"text_color"`
	ShadowColor             string  `json:"shadow_color"`
	BackgroundColor         string  `json:"background_color"`
	BackgroundImage         *string `json:"background_image"`
	UseBackgroundImage      bool    `json:"use_background_image"`
	MutedBackground         string  `json:"muted_background"`
	MutedBackgroundImage    *string `json:"muted_background_image"`
	UseMutedBackgroundImage bool    `json:"use_muted_background_image"`
	DimmedWhenMuted         bool    `json:"dimmed_when_muted"`
}

// BackgroundCustomization describes the app background.
type BackgroundCustomization struct {
	BackgroundColor string  `json:"background_color"`
	BackgroundImage *string `json:"background_image"`
	UseImage        bool    `json:"use_image"`
}

// AutoUpdateConfig caches the result of the last update check.
type AutoUpdateConfig struct {
	LastCheck            *uint64 `json:"last_check"`
	AvailableVersion     *string `json:"available_version"`
	AvailableDownloadURL *string `json:"available_download_url"`
}

// Snapshot is the full set of user-tunable settings at one point in time.
// LastUpdated is the only change signal; field-level diffs are never taken.
// Treat values as immutable and use Clone before mutating shared copies.
type Snapshot struct {
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"last_updated"`
	Commit      *string   `json:"commit"`

	KeyboardSoundpack   string  `json:"keyboard_soundpack"`
	MouseSoundpack      string  `json:"mouse_soundpack"`
	Volume              float32 `json:"volume"`
	MouseVolume         float32 `json:"mouse_volume"`
	EnableVolumeBoost   bool    `json:"enable_volume_boost"`
	EnableSound         bool    `json:"enable_sound"`
	EnableKeyboardSound bool    `json:"enable_keyboard_sound"`
	EnableMouseSound    bool    `json:"enable_mouse_sound"`

	SelectedAudioDevice *string  `json:"selected_audio_device"`
	EnabledKeyboards    []string `json:"enabled_keyboards"`
	EnabledMice         []string `json:"enabled_mice"`

	Theme                         Theme                   `json:"theme"`
	CustomCSS                     string                  `json:"custom_css"`
	LogoCustomization             LogoCustomization       `json:"logo_customization"`
	EnableLogoCustomization       bool                    `json:"enable_logo_customization"`
	BackgroundCustomization       BackgroundCustomization `json:"background_customization"`
	EnableBackgroundCustomization bool                    `json:"enable_background_customization"`

	MusicPlayer          MusicPlayerConfig  `json:"music_player"`
	AmbianceActiveSounds map[string]float32 `json:"ambiance_active_sounds"`
	AmbianceGlobalVolume float32            `json:"ambiance_global_volume"`
	AmbianceIsMuted      bool               `json:"ambiance_is_muted"`

	AutoStart      bool             `json:"auto_start"`
	StartMinimized bool             `json:"start_minimized"`
	LandscapeMode  bool             `json:"landscape_mode"`
	AutoUpdate     AutoUpdateConfig `json:"auto_update"`
}

// Default returns the snapshot used when no store exists yet or it cannot be
// read. LastUpdated is left zero so any persisted write is newer.
func Default() Snapshot {
	return Snapshot{
		Version:             Version,
		KeyboardSoundpack:   "oreo",
		MouseSoundpack:      "test-mouse",
		Volume:              1.0,
		MouseVolume:         1.0,
		EnableSound:         true,
		EnableKeyboardSound: true,
		EnableMouseSound:    true,
		EnabledKeyboards:    []string{},
		EnabledMice:         []string{},
		Theme:               BuiltIn(ThemeSystem),
		LogoCustomization: LogoCustomization{
			BorderColor:     "var(--color-base-content)",
			TextColor:       "var(--color-base-content)",
			ShadowColor:     "var(--color-base-content)",
			BackgroundColor: "var(--color-base-200)",
			MutedBackground: "var(--color-base-300)",
		},
		MusicPlayer: MusicPlayerConfig{
			Volume: 50.0,
		},
		AmbianceActiveSounds: map[string]float32{},
		AmbianceGlobalVolume: 0.5,
	}
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Commit = clonePtr(s.Commit)
	out.SelectedAudioDevice = clonePtr(s.SelectedAudioDevice)
	out.EnabledKeyboards = slices.Clone(s.EnabledKeyboards)
	out.EnabledMice = slices.Clone(s.EnabledMice)
	out.AmbianceActiveSounds = maps.Clone(s.AmbianceActiveSounds)
	out.LogoCustomization.BackgroundImage = clonePtr(s.LogoCustomization.BackgroundImage)
	out.LogoCustomization.MutedBackgroundImage = clonePtr(s.LogoCustomization.MutedBackgroundImage)
	out.BackgroundCustomization.BackgroundImage = clonePtr(s.BackgroundCustomization.BackgroundImage)
	out.MusicPlayer.CurrentTrackID = clonePtr(s.MusicPlayer.CurrentTrackID)
	out.AutoUpdate.LastCheck = clonePtr(s.AutoUpdate.LastCheck)
	out.AutoUpdate.AvailableVersion = clonePtr(s.AutoUpdate.AvailableVersion)
	out.AutoUpdate.AvailableDownloadURL = clonePtr(s.AutoUpdate.AvailableDownloadURL)
	return out
}

// NewerThan reports whether s was written after other.
func (s Snapshot) NewerThan(other Snapshot) bool {
	return s.LastUpdated.After(other.LastUpdated)
}

// SameRevision reports whether both snapshots carry the same timestamp.
func (s Snapshot) SameRevision(other Snapshot) bool {
	return s.LastUpdated.Equal(other.LastUpdated)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
