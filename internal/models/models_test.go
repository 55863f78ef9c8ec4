package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortTodosByCreation(t *testing.T) {
	todos := []Todo{
		{ID: "c", CreatedAt: 30},
		{ID: "b", CreatedAt: 10},
		{ID: "a", CreatedAt: 10},
	}
	SortTodosByCreation(todos)
	assert.Equal(t, []string{"a", "b", "c"}, []string{todos[0].ID, todos[1].ID, todos[2].ID})
	assert.Equal(t, 0, CountCompleted(todos))
}

func TestSettingsPatch_Apply(t *testing.T) {
	lang := "fr"
	off := false
	patch := SettingsPatch{Language: &lang, DarkMode: &off}

	got := patch.Apply(DefaultSettings())
	assert.Equal(t, Settings{DarkMode: false, Notifications: true, Language: "fr", Timezone: "UTC"}, got)
	assert.False(t, patch.IsEmpty())
	assert.True(t, SettingsPatch{}.IsEmpty())
}

func TestProfile_NameOrAnonymous(t *testing.T) {
	var missing *Profile
	assert.Equal(t, AnonymousName, missing.NameOrAnonymous())
	assert.Equal(t, AnonymousName, (&Profile{}).NameOrAnonymous())
	assert.Equal(t, "Ann", (&Profile{DisplayName: "Ann"}).NameOrAnonymous())
}
