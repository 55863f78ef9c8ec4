package models

import "time"

// StoredDocument is a document as an emulated contract keeps it: the raw
// payload plus the account that owns it
type StoredDocument struct {
	Collection string    `json:"collection"`
	Key        string    `json:"key"`
	Owner      string    `json:"owner"`
	Data       string    `json:"data"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
