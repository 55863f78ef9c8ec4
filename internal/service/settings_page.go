package service

import (
	"context"

	"github.com/docustore/internal/models"
	"github.com/docustore/internal/session"
	"github.com/docustore/internal/types"
)

// Settings page messages
const (
	SettingsConnectPrompt  = "Please connect your wallet to view settings"
	SettingsUpdatedMessage = "Settings updated successfully!"
)

// SettingsPage shows and edits the connected account's settings
type SettingsPage struct {
	page
	settings models.Settings
}

// NewSettingsPage creates a settings page; sess may be nil
func NewSettingsPage(sess *session.Session, deps *Deps) *SettingsPage {
	p := &SettingsPage{settings: models.DefaultSettings()}
	p.init("settings", sess, deps)
	return p
}

// Mount fetches stored settings, keeping the defaults when none exist
func (p *SettingsPage) Mount(ctx context.Context) error {
	return p.run(ctx, "mount", p.fetch)
}

func (p *SettingsPage) fetch(ctx context.Context, address string) error {
	// Decode over the defaults so fields missing from older documents keep them
	settings := models.DefaultSettings()
	found, err := p.deps.Store.Get(ctx, types.CollectionSettings, address, &settings)
	if err != nil {
		return err
	}
	if found {
		p.settings = settings
	}
	return nil
}

// Update merges patch over the current settings and saves the whole document
func (p *SettingsPage) Update(ctx context.Context, patch models.SettingsPatch) error {
	return p.run(ctx, "update", func(ctx context.Context, address string) error {
		next := patch.Apply(p.settings)
		if _, err := p.deps.Store.Set(ctx, address, types.CollectionSettings, address, next); err != nil {
			return err
		}

		p.notify(SettingsUpdatedMessage)
		if err := p.fetch(ctx, address); err != nil {
			p.logger.WithError(err).Warn("Reload after write failed, applying confirmed change")
			p.settings = next
		}
		return nil
	})
}

// Settings returns the current settings
func (p *SettingsPage) Settings() models.Settings {
	return p.settings
}

// SettingsView is the rendered settings page
type SettingsView struct {
	Connected    bool            `json:"connected"`
	Prompt       string          `json:"prompt,omitempty"`
	Loading      bool            `json:"loading"`
	Settings     models.Settings `json:"settings"`
	Languages    []models.Option `json:"languages"`
	Timezones    []models.Option `json:"timezones"`
	Notification *Notification   `json:"notification,omitempty"`
}

// View renders the page
func (p *SettingsPage) View() *SettingsView {
	if !p.Connected() {
		return &SettingsView{Prompt: SettingsConnectPrompt, Settings: models.DefaultSettings()}
	}
	return &SettingsView{
		Connected:    true,
		Loading:      p.Loading(),
		Settings:     p.settings,
		Languages:    models.Languages,
		Timezones:    models.Timezones,
		Notification: p.notification(),
	}
}
