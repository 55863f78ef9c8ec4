package docstore

import (
	"context"
	"testing"

	"github.com/docustore/internal/models"
	"github.com/docustore/internal/types"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: a record written with Set comes back from the owner listing
// exactly, keyed by its id
func TestProperty_SetThenListRoundTrips(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("todo round-trips through the contract", prop.ForAll(
		func(text string, completed bool, createdAt int64) bool {
			ctx := context.Background()
			s, _ := newTestStore(0, 0)

			todo := models.Todo{ID: uuid.NewString(), Text: text, Completed: completed, CreatedAt: createdAt}
			if _, err := s.Set(ctx, owner, types.CollectionTodos, todo.ID, todo); err != nil {
				return false
			}

			todos, err := ListOwned[models.Todo](ctx, s, owner, types.CollectionTodos)
			return err == nil && len(todos) == 1 && todos[0] == todo
		},
		gen.AnyString(),
		gen.Bool(),
		gen.Int64Range(0, 1<<45),
	))

	properties.Property("profile round-trips through Get", prop.ForAll(
		func(name, bio, avatar, github string) bool {
			ctx := context.Background()
			s, _ := newTestStore(0, 0)

			profile := models.Profile{DisplayName: name, Bio: bio, Avatar: avatar, SocialLinks: models.SocialLinks{GitHub: github}}
			if _, err := s.Set(ctx, owner, types.CollectionProfiles, owner, profile); err != nil {
				return false
			}

			var got models.Profile
			found, err := s.Get(ctx, types.CollectionProfiles, owner, &got)
			return err == nil && found && got == profile
		},
		gen.AlphaString(),
		gen.AnyString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("delete removes the record from the next listing", prop.ForAll(
		func(n int) bool {
			ctx := context.Background()
			s, _ := newTestStore(3, 0)

			ids := make([]string, n)
			for i := range ids {
				ids[i] = uuid.NewString()
				if _, err := s.Set(ctx, owner, types.CollectionTodos, ids[i], models.Todo{ID: ids[i]}); err != nil {
					return false
				}
			}
			if _, err := s.Delete(ctx, owner, types.CollectionTodos, ids[0]); err != nil {
				return false
			}

			todos, err := ListOwned[models.Todo](ctx, s, owner, types.CollectionTodos)
			if err != nil || len(todos) != n-1 {
				return false
			}
			for _, todo := range todos {
				if todo.ID == ids[0] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}
