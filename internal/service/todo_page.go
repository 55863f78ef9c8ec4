package service

import (
	"context"
	"strings"

	"github.com/docustore/internal/docstore"
	"github.com/docustore/internal/errors"
	"github.com/docustore/internal/models"
	"github.com/docustore/internal/session"
	"github.com/docustore/internal/types"
	"github.com/google/uuid"
)

// Todo page messages
const (
	TodoConnectPrompt  = "Please connect your wallet to view todos"
	TodoAddedMessage   = "Todo added successfully!"
	TodoDeletedMessage = "Todo deleted successfully!"
	TodoCompletedMsg   = "Todo marked as completed!"
	TodoIncompleteMsg  = "Todo marked as incomplete!"
)

// TodoPage lists and edits the connected account's todos
type TodoPage struct {
	page
	todos []models.Todo
}

// NewTodoPage creates a todo page; sess may be nil
func NewTodoPage(sess *session.Session, deps *Deps) *TodoPage {
	p := &TodoPage{}
	p.init("todos", sess, deps)
	return p
}

// Mount fetches the account's todos
func (p *TodoPage) Mount(ctx context.Context) error {
	return p.run(ctx, "mount", p.fetch)
}

func (p *TodoPage) fetch(ctx context.Context, address string) error {
	todos, err := docstore.ListOwned[models.Todo](ctx, p.deps.Store, address, types.CollectionTodos)
	if err != nil {
		return err
	}
	models.SortTodosByCreation(todos)
	p.todos = todos
	return nil
}

// refetch reloads after a confirmed write. If the reload fails the
// confirmed change is applied locally instead.
func (p *TodoPage) refetch(ctx context.Context, address string, apply func()) {
	if err := p.fetch(ctx, address); err != nil {
		p.logger.WithError(err).Warn("Reload after write failed, applying confirmed change")
		apply()
		models.SortTodosByCreation(p.todos)
	}
}

// Add creates a todo from text. Blank text is rejected before any contract call.
func (p *TodoPage) Add(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		if _, err := p.address(); err != nil {
			return err
		}
		return errors.NewValidationError("text", "must not be empty")
	}

	return p.run(ctx, "add", func(ctx context.Context, address string) error {
		todo := models.Todo{
			ID:        uuid.NewString(),
			Text:      text,
			Completed: false,
			CreatedAt: p.deps.now().UnixMilli(),
		}
		if _, err := p.deps.Store.Set(ctx, address, types.CollectionTodos, todo.ID, todo); err != nil {
			return err
		}

		p.notify(TodoAddedMessage)
		p.refetch(ctx, address, func() { p.todos = append(p.todos, todo) })
		return nil
	})
}

// Toggle flips a todo's completed flag
func (p *TodoPage) Toggle(ctx context.Context, id string) error {
	return p.run(ctx, "toggle", func(ctx context.Context, address string) error {
		idx := p.indexOf(id)
		if idx < 0 {
			return errors.NewNotFoundError("todo", id)
		}

		updated := p.todos[idx]
		updated.Completed = !updated.Completed
		if _, err := p.deps.Store.Update(ctx, address, types.CollectionTodos, id, updated); err != nil {
			return err
		}

		if updated.Completed {
			p.notify(TodoCompletedMsg)
		} else {
			p.notify(TodoIncompleteMsg)
		}
		p.refetch(ctx, address, func() {
			if i := p.indexOf(id); i >= 0 {
				p.todos[i] = updated
			}
		})
		return nil
	})
}

// Delete removes a todo
func (p *TodoPage) Delete(ctx context.Context, id string) error {
	return p.run(ctx, "delete", func(ctx context.Context, address string) error {
		if p.indexOf(id) < 0 {
			return errors.NewNotFoundError("todo", id)
		}
		if _, err := p.deps.Store.Delete(ctx, address, types.CollectionTodos, id); err != nil {
			return err
		}

		p.notify(TodoDeletedMessage)
		p.refetch(ctx, address, func() {
			if i := p.indexOf(id); i >= 0 {
				p.todos = append(p.todos[:i], p.todos[i+1:]...)
			}
		})
		return nil
	})
}

func (p *TodoPage) indexOf(id string) int {
	for i, t := range p.todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Todos returns a copy of the current list
func (p *TodoPage) Todos() []models.Todo {
	out := make([]models.Todo, len(p.todos))
	copy(out, p.todos)
	return out
}

// TodoView is the rendered todo page
type TodoView struct {
	Connected    bool          `json:"connected"`
	Prompt       string        `json:"prompt,omitempty"`
	Loading      bool          `json:"loading"`
	Todos        []models.Todo `json:"todos"`
	Total        int           `json:"total"`
	Completed    int           `json:"completed"`
	Notification *Notification `json:"notification,omitempty"`
}

// View renders the page
func (p *TodoPage) View() *TodoView {
	if !p.Connected() {
		return &TodoView{Prompt: TodoConnectPrompt, Todos: []models.Todo{}}
	}
	todos := p.Todos()
	return &TodoView{
		Connected:    true,
		Loading:      p.Loading(),
		Todos:        todos,
		Total:        len(todos),
		Completed:    models.CountCompleted(todos),
		Notification: p.notification(),
	}
}
