package model

// maxRecentInputs bounds the recent input list.
const maxRecentInputs = 10

// AppConfig holds application-wide preferences and default settings.
type AppConfig struct {
	// Default optimizer settings applied to new runs
	Defaults Settings `json:"defaults"`

	// Application preferences
	DefaultProfile string   `json:"default_profile"` // Profile assigned to DXF imports
	OutputDir      string   `json:"output_dir"`      // Where exports go when no path is given
	RecentInputs   []string `json:"recent_inputs"`
}

// DefaultAppConfig returns an AppConfig populated with sensible defaults
// matching the values from DefaultSettings().
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Defaults:       DefaultSettings(),
		DefaultProfile: "default",
		OutputDir:      ".",
		RecentInputs:   []string{},
	}
}

// ApplyToSettings copies the saved defaults into s. Fields left at zero in
// the config keep the built-in defaults.
func (c AppConfig) ApplyToSettings(s *Settings) {
	*s = c.Defaults.WithDefaults()
}

// AddRecentInput moves path to the front of the recent list, dropping
// duplicates and the oldest entries.
func (c *AppConfig) AddRecentInput(path string) {
	recent := []string{path}
	for _, p := range c.RecentInputs {
		if p != path {
			recent = append(recent, p)
		}
	}
	if len(recent) > maxRecentInputs {
		recent = recent[:maxRecentInputs]
	}
	c.RecentInputs = recent
}
