package models

// Settings is the payload of a document in the settings collection, keyed by
// the owning account address
type Settings struct {
	DarkMode      bool   `json:"darkMode"`
	Notifications bool   `json:"notifications"`
	Language      string `json:"language"`
	Timezone      string `json:"timezone"`
}

// DefaultSettings is what an account sees before it has saved anything
func DefaultSettings() Settings {
	return Settings{
		DarkMode:      true,
		Notifications: true,
		Language:      "en",
		Timezone:      "UTC",
	}
}

// Option is a selectable value with its display label
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Languages offered by the settings page. Not enforced on save.
var Languages = []Option{
	{Value: "en", Label: "English"},
	{Value: "es", Label: "Español"},
	{Value: "fr", Label: "Français"},
	{Value: "de", Label: "Deutsch"},
	{Value: "ja", Label: "日本語"},
}

// Timezones offered by the settings page. Not enforced on save.
var Timezones = []Option{
	{Value: "UTC", Label: "UTC"},
	{Value: "EST", Label: "Eastern Time (EST)"},
	{Value: "CST", Label: "Central Time (CST)"},
	{Value: "PST", Label: "Pacific Time (PST)"},
	{Value: "GMT", Label: "Greenwich Mean Time (GMT)"},
}

// SettingsPatch carries a partial settings update; nil fields are left alone
type SettingsPatch struct {
	DarkMode      *bool   `json:"darkMode,omitempty"`
	Notifications *bool   `json:"notifications,omitempty"`
	Language      *string `json:"language,omitempty"`
	Timezone      *string `json:"timezone,omitempty"`
}

// Apply returns s with the patch applied
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.DarkMode != nil {
		s.DarkMode = *p.DarkMode
	}
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
	if p.Language != nil {
		s.Language = *p.Language
	}
	if p.Timezone != nil {
		s.Timezone = *p.Timezone
	}
	return s
}

// IsEmpty reports whether the patch changes nothing
func (p SettingsPatch) IsEmpty() bool {
	return p.DarkMode == nil && p.Notifications == nil && p.Language == nil && p.Timezone == nil
}
