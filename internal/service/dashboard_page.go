package service

import (
	"context"
	"sort"

	"github.com/docustore/internal/docstore"
	"github.com/docustore/internal/models"
	"github.com/docustore/internal/session"
	"github.com/docustore/internal/types"
	"golang.org/x/sync/errgroup"
)

// Dashboard page constants
const (
	DashboardConnectPrompt = "Please connect your wallet to view dashboard"
	RecentTodoCount        = 5
)

// DashboardPage summarizes the account's profile and todos
type DashboardPage struct {
	page
	profile *models.Profile
	todos   []models.Todo
}

// NewDashboardPage creates a dashboard page; sess may be nil
func NewDashboardPage(sess *session.Session, deps *Deps) *DashboardPage {
	p := &DashboardPage{}
	p.init("dashboard", sess, deps)
	return p
}

// Mount fetches todos and profile concurrently. Either failing leaves the
// page as it was.
func (p *DashboardPage) Mount(ctx context.Context) error {
	return p.run(ctx, "mount", func(ctx context.Context, address string) error {
		var (
			todos   []models.Todo
			profile models.Profile
			found   bool
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			todos, err = docstore.ListOwned[models.Todo](gctx, p.deps.Store, address, types.CollectionTodos)
			return err
		})
		g.Go(func() error {
			var err error
			found, err = p.deps.Store.Get(gctx, types.CollectionProfiles, address, &profile)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		p.todos = todos
		p.profile = nil
		if found {
			p.profile = &profile
		}
		return nil
	})
}

// RecentTodos returns up to RecentTodoCount todos, newest first
func RecentTodos(todos []models.Todo) []models.Todo {
	recent := make([]models.Todo, len(todos))
	copy(recent, todos)
	sort.SliceStable(recent, func(i, j int) bool {
		if recent[i].CreatedAt != recent[j].CreatedAt {
			return recent[i].CreatedAt > recent[j].CreatedAt
		}
		return recent[i].ID < recent[j].ID
	})
	if len(recent) > RecentTodoCount {
		recent = recent[:RecentTodoCount]
	}
	return recent
}

// DashboardStats counts todos by state
type DashboardStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// DashboardView is the rendered dashboard
type DashboardView struct {
	Connected   bool           `json:"connected"`
	Prompt      string         `json:"prompt,omitempty"`
	Loading     bool           `json:"loading"`
	DisplayName string         `json:"displayName,omitempty"`
	Avatar      string         `json:"avatar,omitempty"`
	Bio         string         `json:"bio,omitempty"`
	Stats       DashboardStats `json:"stats"`
	RecentTodos []models.Todo  `json:"recentTodos"`
}

// View renders the page
func (p *DashboardPage) View() *DashboardView {
	if !p.Connected() {
		return &DashboardView{Prompt: DashboardConnectPrompt, RecentTodos: []models.Todo{}}
	}

	completed := models.CountCompleted(p.todos)
	v := &DashboardView{
		Connected:   true,
		Loading:     p.Loading(),
		DisplayName: p.profile.NameOrAnonymous(),
		Stats: DashboardStats{
			Total:     len(p.todos),
			Completed: completed,
			Pending:   len(p.todos) - completed,
		},
		RecentTodos: RecentTodos(p.todos),
	}
	if p.profile != nil {
		v.Avatar = p.profile.Avatar
		v.Bio = p.profile.Bio
	}
	return v
}
