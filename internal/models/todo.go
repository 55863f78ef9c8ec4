// Package models provides the records stored as document payloads.
package models

import "sort"

// Todo is the payload of a document in the todos collection. The document
// key doubles as the id.
type Todo struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	CreatedAt int64  `json:"createdAt"` // Unix milliseconds
}

// SortTodosByCreation orders todos oldest first, falling back to id so the
// order is stable for todos created in the same millisecond
func SortTodosByCreation(todos []Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		if todos[i].CreatedAt != todos[j].CreatedAt {
			return todos[i].CreatedAt < todos[j].CreatedAt
		}
		return todos[i].ID < todos[j].ID
	})
}

// CountCompleted returns how many todos are done
func CountCompleted(todos []Todo) int {
	n := 0
	for _, t := range todos {
		if t.Completed {
			n++
		}
	}
	return n
}
