package service

import (
	"context"

	"github.com/docustore/internal/models"
	"github.com/docustore/internal/session"
	"github.com/docustore/internal/types"
)

// Profile page messages
const (
	ProfileConnectPrompt  = "Please connect your wallet to view profile"
	ProfileUpdatedMessage = "Profile updated successfully!"
)

// ProfilePage shows and edits the connected account's profile
type ProfilePage struct {
	page
	profile *models.Profile
	draft   models.Profile
	editing bool
	fetched bool
}

// NewProfilePage creates a profile page; sess may be nil
func NewProfilePage(sess *session.Session, deps *Deps) *ProfilePage {
	p := &ProfilePage{}
	p.init("profile", sess, deps)
	return p
}

// Mount fetches the profile stored under the account address
func (p *ProfilePage) Mount(ctx context.Context) error {
	return p.run(ctx, "mount", func(ctx context.Context, address string) error {
		defer func() { p.fetched = true }()

		var profile models.Profile
		found, err := p.deps.Store.Get(ctx, types.CollectionProfiles, address, &profile)
		if err != nil {
			return err
		}
		if found {
			p.profile = &profile
			p.draft = profile
		}
		return nil
	})
}

// StartEditing opens the edit form seeded with the current profile
func (p *ProfilePage) StartEditing() {
	if p.profile != nil {
		p.draft = *p.profile
	}
	p.editing = true
}

// CancelEditing closes the form and discards the draft
func (p *ProfilePage) CancelEditing() {
	p.editing = false
	if p.profile != nil {
		p.draft = *p.profile
	}
}

// Editing reports whether the edit form is open
func (p *ProfilePage) Editing() bool {
	return p.editing
}

// Save writes profile under the account address
func (p *ProfilePage) Save(ctx context.Context, profile models.Profile) error {
	p.draft = profile
	return p.run(ctx, "save", func(ctx context.Context, address string) error {
		if _, err := p.deps.Store.Set(ctx, address, types.CollectionProfiles, address, profile); err != nil {
			return err
		}

		p.editing = false
		p.notify(ProfileUpdatedMessage)

		var reloaded models.Profile
		found, err := p.deps.Store.Get(ctx, types.CollectionProfiles, address, &reloaded)
		if err != nil || !found {
			p.logger.WithError(err).Warn("Reload after write failed, applying confirmed change")
			reloaded = profile
		}
		p.profile = &reloaded
		p.draft = reloaded
		return nil
	})
}

// Profile returns the stored profile, or nil when there is none yet
func (p *ProfilePage) Profile() *models.Profile {
	if p.profile == nil {
		return nil
	}
	cp := *p.profile
	return &cp
}

// ProfileView is the rendered profile page
type ProfileView struct {
	Connected    bool            `json:"connected"`
	Prompt       string          `json:"prompt,omitempty"`
	Loading      bool            `json:"loading"`
	Editing      bool            `json:"editing"`
	Address      string          `json:"address,omitempty"`
	Profile      *models.Profile `json:"profile"`
	Draft        *models.Profile `json:"draft,omitempty"`
	Notification *Notification   `json:"notification,omitempty"`
}

// View renders the page. Loading stays true until the first fetch has
// finished or a profile is present.
func (p *ProfilePage) View() *ProfileView {
	if !p.Connected() {
		return &ProfileView{Prompt: ProfileConnectPrompt}
	}
	v := &ProfileView{
		Connected:    true,
		Loading:      p.profile == nil && (p.Loading() || !p.fetched),
		Editing:      p.editing,
		Address:      p.session.Address(),
		Profile:      p.Profile(),
		Notification: p.notification(),
	}
	if p.editing {
		draft := p.draft
		v.Draft = &draft
	}
	return v
}
