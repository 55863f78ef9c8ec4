// Package service holds the page view-models. A page is built for one
// session, mounted (fetched from the contract), acted on, and rendered.
// Pages keep their state in memory only; every visit re-fetches.
package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/docustore/internal/docstore"
	"github.com/docustore/internal/errors"
	"github.com/docustore/internal/logging"
	"github.com/docustore/internal/session"
)

// Deps are the collaborators every page needs
type Deps struct {
	Store         *docstore.Store
	Notifications *Notifications
	Logger        *logging.Logger
	Now           func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

func (d *Deps) logger() *logging.Logger {
	if d.Logger == nil {
		return logging.Nop()
	}
	return d.Logger
}

// page is the state every page shares: who is connected and whether an
// action is in flight
type page struct {
	deps    *Deps
	session *session.Session
	logger  *logging.Logger
	loading atomic.Bool
}

func (p *page) init(name string, sess *session.Session, deps *Deps) {
	p.deps = deps
	p.session = sess
	p.logger = deps.logger().WithComponent(name)
	if sess != nil {
		p.logger = p.logger.WithField("address", sess.ShortAddress())
	}
}

// Connected reports whether the page has an active session
func (p *page) Connected() bool {
	return p.session.Active(p.deps.now())
}

// Loading reports whether an action is in flight
func (p *page) Loading() bool {
	return p.loading.Load()
}

func (p *page) address() (string, error) {
	if !p.Connected() {
		return "", errors.ErrNotConnected
	}
	return p.session.Address(), nil
}

// run executes fn holding the loading flag. A second action while one is
// in flight is rejected with ErrBusy. The flag is always released.
func (p *page) run(ctx context.Context, action string, fn func(ctx context.Context, address string) error) error {
	address, err := p.address()
	if err != nil {
		return err
	}
	if !p.loading.CompareAndSwap(false, true) {
		return errors.ErrBusy
	}
	defer p.loading.Store(false)

	logger := p.logger.WithField("action", action)
	ctx = logging.WithLogger(ctx, logger)

	if err := fn(ctx, address); err != nil {
		logger.WithError(err).Error("Page action failed")
		return err
	}
	return nil
}

func (p *page) notify(message string) {
	if p.deps.Notifications != nil && p.session != nil {
		p.deps.Notifications.Show(p.session.ID, message)
	}
}

func (p *page) notification() *Notification {
	if p.deps.Notifications == nil || p.session == nil {
		return nil
	}
	return p.deps.Notifications.Current(p.session.ID)
}
