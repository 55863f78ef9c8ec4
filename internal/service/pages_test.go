package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/docustore/internal/adapter"
	"github.com/docustore/internal/adapter/adaptertest"
	"github.com/docustore/internal/docstore"
	"github.com/docustore/internal/errors"
	"github.com/docustore/internal/models"
	"github.com/docustore/internal/session"
	"github.com/docustore/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "wasm1qxy7hz3k0f5m9t2l8r4d6s0v3n5c7b9a1e2x7k2"

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	rec   *adaptertest.Recorder
	deps  *Deps
	sess  *session.Session
	clock *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := testNow
	f := &fixture{rec: adaptertest.NewMemoryContract(), clock: &now}
	clock := func() time.Time { return *f.clock }
	f.deps = &Deps{
		Store:         docstore.New(f.rec, docstore.Config{Contract: adaptertest.Contract}),
		Notifications: NewNotifications(3*time.Second, clock),
		Now:           clock,
	}
	f.sess = &session.Session{
		ID:          "sess-1",
		Account:     types.Account{Address: testAddress},
		State:       session.StateActive,
		ConnectedAt: now,
		ExpiresAt:   now.Add(time.Hour),
	}
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func TestTodoPage_AddToggleDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := NewTodoPage(f.sess, f.deps)
	require.NoError(t, p.Mount(ctx))
	assert.Empty(t, p.Todos())

	require.NoError(t, p.Add(ctx, "  buy milk  "))
	todos := p.Todos()
	require.Len(t, todos, 1)
	assert.Equal(t, "buy milk", todos[0].Text)
	assert.False(t, todos[0].Completed)
	assert.Equal(t, testNow.UnixMilli(), todos[0].CreatedAt)
	assert.Equal(t, TodoAddedMessage, p.View().Notification.Message)

	// A fresh page sees exactly the stored record keyed by its id
	fresh := NewTodoPage(f.sess, f.deps)
	require.NoError(t, fresh.Mount(ctx))
	assert.Equal(t, todos, fresh.Todos())

	id := todos[0].ID
	require.NoError(t, p.Toggle(ctx, id))
	assert.True(t, p.Todos()[0].Completed)
	assert.Equal(t, TodoCompletedMsg, p.View().Notification.Message)

	require.NoError(t, p.Toggle(ctx, id))
	assert.Equal(t, todos[0], p.Todos()[0], "toggling twice restores the record")
	assert.Equal(t, TodoIncompleteMsg, p.View().Notification.Message)

	require.NoError(t, p.Delete(ctx, id))
	assert.Empty(t, p.Todos())
	assert.Equal(t, TodoDeletedMessage, p.View().Notification.Message)

	require.NoError(t, fresh.Mount(ctx))
	assert.Empty(t, fresh.Todos())
}

func TestTodoPage_ListedInCreationOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := NewTodoPage(f.sess, f.deps)
	require.NoError(t, p.Mount(ctx))

	for i := 0; i < 4; i++ {
		require.NoError(t, p.Add(ctx, fmt.Sprintf("todo %d", i)))
		f.advance(time.Second)
	}

	view := p.View()
	require.Len(t, view.Todos, 4)
	for i, todo := range view.Todos {
		assert.Equal(t, fmt.Sprintf("todo %d", i), todo.Text)
	}
	assert.Equal(t, 4, view.Total)
}

func TestTodoPage_BlankTextNeverReachesContract(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := NewTodoPage(f.sess, f.deps)

	err := p.Add(ctx, "   ")
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Zero(t, f.rec.Calls())
}

func TestTodoPage_WriteFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := NewTodoPage(f.sess, f.deps)
	require.NoError(t, p.Mount(ctx))
	require.NoError(t, p.Add(ctx, "keep me"))
	before := p.Todos()
	f.advance(10 * time.Second)

	f.rec.FailExecutes(errors.NewTransportError("signer", fmt.Errorf("connection refused")))

	assert.Error(t, p.Add(ctx, "lost"))
	assert.Error(t, p.Toggle(ctx, before[0].ID))
	assert.Error(t, p.Delete(ctx, before[0].ID))

	assert.Equal(t, before, p.Todos())
	assert.False(t, p.Loading())
	assert.Nil(t, p.View().Notification)
}

func TestTodoPage_ReloadFailureAppliesConfirmedChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := NewTodoPage(f.sess, f.deps)
	require.NoError(t, p.Mount(ctx))

	f.rec.FailQueries(errors.NewTransportError("lcd", fmt.Errorf("timeout")))
	require.NoError(t, p.Add(ctx, "written"))

	todos := p.Todos()
	require.Len(t, todos, 1)
	assert.Equal(t, "written", todos[0].Text)

	require.NoError(t, p.Toggle(ctx, todos[0].ID))
	assert.True(t, p.Todos()[0].Completed)

	require.NoError(t, p.Delete(ctx, todos[0].ID))
	assert.Empty(t, p.Todos())
}

func TestTodoPage_UnknownID(t *testing.T) {
	f := newFixture(t)
	p := NewTodoPage(f.sess, f.deps)
	require.NoError(t, p.Mount(context.Background()))

	err := p.Toggle(context.Background(), "missing")
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
	assert.Zero(t, f.rec.Executes())
}

// blockingClient holds execute calls until released
type blockingClient struct {
	adapter.ContractClient
	entered chan struct{}
	release chan struct{}
}

func (b *blockingClient) Execute(ctx context.Context, sender, contract string, msg *adapter.ExecuteMsg, fee types.FeePolicy) (*adapter.TxResult, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.ContractClient.Execute(ctx, sender, contract, msg, fee)
}

func TestTodoPage_SecondActionWhileBusy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	blocking := &blockingClient{ContractClient: f.rec, entered: make(chan struct{}), release: make(chan struct{})}
	f.deps.Store = docstore.New(blocking, docstore.Config{Contract: adaptertest.Contract})
	p := NewTodoPage(f.sess, f.deps)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		firstErr = p.Add(ctx, "first")
	}()

	<-blocking.entered
	assert.True(t, p.Loading())
	assert.ErrorIs(t, p.Add(ctx, "second"), errors.ErrBusy)
	assert.ErrorIs(t, p.Mount(ctx), errors.ErrBusy)

	close(blocking.release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.False(t, p.Loading())
	require.Len(t, p.Todos(), 1)
}

func TestPages_WithoutSessionShowPromptAndMakeNoCalls(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	expired := *f.sess
	expired.ExpiresAt = testNow.Add(-time.Minute)
	disconnected := *f.sess
	disconnected.State = session.StateDisconnected

	for name, sess := range map[string]*session.Session{"nil": nil, "expired": &expired, "disconnected": &disconnected} {
		t.Run(name, func(t *testing.T) {
			todos := NewTodoPage(sess, f.deps)
			assert.ErrorIs(t, todos.Mount(ctx), errors.ErrNotConnected)
			assert.ErrorIs(t, todos.Add(ctx, "x"), errors.ErrNotConnected)
			assert.ErrorIs(t, todos.Add(ctx, ""), errors.ErrNotConnected)
			assert.ErrorIs(t, todos.Toggle(ctx, "x"), errors.ErrNotConnected)
			assert.ErrorIs(t, todos.Delete(ctx, "x"), errors.ErrNotConnected)
			assert.Equal(t, TodoConnectPrompt, todos.View().Prompt)

			profile := NewProfilePage(sess, f.deps)
			assert.ErrorIs(t, profile.Mount(ctx), errors.ErrNotConnected)
			assert.ErrorIs(t, profile.Save(ctx, models.Profile{}), errors.ErrNotConnected)
			assert.Equal(t, ProfileConnectPrompt, profile.View().Prompt)

			settings := NewSettingsPage(sess, f.deps)
			assert.ErrorIs(t, settings.Mount(ctx), errors.ErrNotConnected)
			assert.ErrorIs(t, settings.Update(ctx, models.SettingsPatch{}), errors.ErrNotConnected)
			assert.Equal(t, SettingsConnectPrompt, settings.View().Prompt)

			dashboard := NewDashboardPage(sess, f.deps)
			assert.ErrorIs(t, dashboard.Mount(ctx), errors.ErrNotConnected)
			assert.Equal(t, DashboardConnectPrompt, dashboard.View().Prompt)

			nav := Navigation(sess, testNow)
			assert.False(t, nav.Connected)
			assert.Equal(t, "Connect Wallet", nav.Action.Label)

			assert.Zero(t, f.rec.Calls())
		})
	}
}

func TestProfilePage_SaveAndReload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := NewProfilePage(f.sess, f.deps)

	assert.True(t, p.View().Loading, "loading until the first fetch finishes")
	require.NoError(t, p.Mount(ctx))
	view := p.View()
	assert.False(t, view.Loading)
	assert.Nil(t, view.Profile)

	p.StartEditing()
	assert.True(t, p.View().Editing)

	ann := models.Profile{DisplayName: "Ann", Bio: "hi", Avatar: "", SocialLinks: models.SocialLinks{}}
	require.NoError(t, p.Save(ctx, ann))
	assert.False(t, p.Editing())
	assert.Equal(t, &ann, p.Profile())
	assert.Equal(t, ProfileUpdatedMessage, p.View().Notification.Message)

	fresh := NewProfilePage(f.sess, f.deps)
	require.NoError(t, fresh.Mount(ctx))
	assert.Equal(t, &ann, fresh.Profile())
}

func TestProfilePage_CancelEditingRestoresDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.deps.Store.Set(ctx, testAddress, types.CollectionProfiles, testAddress, models.Profile{DisplayName: "Ann"})
	require.NoError(t, err)

	p := NewProfilePage(f.sess, f.deps)
	require.NoError(t, p.Mount(ctx))
	p.StartEditing()
	p.draft.DisplayName = "Changed"
	p.CancelEditing()

	view := p.View()
	assert.False(t, view.Editing)
	assert.Equal(t, "Ann", view.Profile.DisplayName)
	assert.Equal(t, "Ann", p.draft.DisplayName)
}

func TestProfilePage_SaveFailureKeepsProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := NewProfilePage(f.sess, f.deps)
	require.NoError(t, p.Mount(ctx))
	p.StartEditing()

	f.rec.FailExecutes(errors.NewContractRejectionError("out of gas"))
	assert.Error(t, p.Save(ctx, models.Profile{DisplayName: "Bob"}))
	assert.Nil(t, p.Profile())
	assert.True(t, p.Editing())
	assert.False(t, p.Loading())
}

func TestSettingsPage_DefaultsAndPatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := NewSettingsPage(f.sess, f.deps)
	require.NoError(t, p.Mount(ctx))
	assert.Equal(t, models.DefaultSettings(), p.Settings())

	view := p.View()
	assert.Len(t, view.Languages, 5)
	assert.Len(t, view.Timezones, 5)

	lang := "ja"
	off := false
	require.NoError(t, p.Update(ctx, models.SettingsPatch{Language: &lang, Notifications: &off}))
	want := models.Settings{DarkMode: true, Notifications: false, Language: "ja", Timezone: "UTC"}
	assert.Equal(t, want, p.Settings())
	assert.Equal(t, SettingsUpdatedMessage, p.View().Notification.Message)

	fresh := NewSettingsPage(f.sess, f.deps)
	require.NoError(t, fresh.Mount(ctx))
	assert.Equal(t, want, fresh.Settings())
}

func TestSettingsPage_MountFailureKeepsDefaults(t *testing.T) {
	f := newFixture(t)
	f.rec.FailQueries(errors.NewTransportError("lcd", fmt.Errorf("down")))

	p := NewSettingsPage(f.sess, f.deps)
	assert.Error(t, p.Mount(context.Background()))
	assert.Equal(t, models.DefaultSettings(), p.Settings())
	assert.False(t, p.Loading())
}

func TestDashboardPage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	todos := NewTodoPage(f.sess, f.deps)
	for i := 0; i < 7; i++ {
		require.NoError(t, todos.Add(ctx, fmt.Sprintf("todo %d", i)))
		f.advance(time.Second)
	}
	require.NoError(t, todos.Toggle(ctx, todos.Todos()[0].ID))
	require.NoError(t, todos.Toggle(ctx, todos.Todos()[1].ID))

	d := NewDashboardPage(f.sess, f.deps)
	require.NoError(t, d.Mount(ctx))
	view := d.View()
	assert.Equal(t, models.AnonymousName, view.DisplayName)
	assert.Equal(t, DashboardStats{Total: 7, Completed: 2, Pending: 5}, view.Stats)
	require.Len(t, view.RecentTodos, RecentTodoCount)
	assert.Equal(t, "todo 6", view.RecentTodos[0].Text)
	assert.Equal(t, "todo 2", view.RecentTodos[4].Text)

	_, err := f.deps.Store.Set(ctx, testAddress, types.CollectionProfiles, testAddress, models.Profile{DisplayName: "Ann", Avatar: "https://a/b.png"})
	require.NoError(t, err)
	require.NoError(t, d.Mount(ctx))
	assert.Equal(t, "Ann", d.View().DisplayName)
	assert.Equal(t, "https://a/b.png", d.View().Avatar)
}

func TestNotifications_Expire(t *testing.T) {
	now := testNow
	n := NewNotifications(3*time.Second, func() time.Time { return now })

	n.Show("s1", "hello")
	require.NotNil(t, n.Current("s1"))
	assert.Nil(t, n.Current("s2"))

	now = now.Add(2999 * time.Millisecond)
	assert.NotNil(t, n.Current("s1"))

	now = now.Add(time.Millisecond)
	assert.Nil(t, n.Current("s1"))

	n.Show("s1", "again")
	n.Show("s2", "other")
	n.Dismiss("s1")
	assert.Nil(t, n.Current("s1"))
	now = now.Add(time.Minute)
	assert.Equal(t, 1, n.Sweep())
}

func TestNavigation_Connected(t *testing.T) {
	f := newFixture(t)
	nav := Navigation(f.sess, testNow)
	assert.Equal(t, Brand, nav.Brand)
	assert.True(t, nav.Connected)
	assert.Equal(t, "wasm1q...x7k2", nav.ShortAddress)
	assert.Equal(t, "Logout", nav.Action.Label)
	assert.Equal(t, []string{"Todos", "Profile", "Settings"}, []string{nav.Links[0].Label, nav.Links[1].Label, nav.Links[2].Label})
}
