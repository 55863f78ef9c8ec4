package service

import (
	"time"

	"github.com/docustore/internal/session"
)

// Brand is the application title shown in the navigation bar
const Brand = "DocuStore - Todo App"

// NavLink is one navigation entry
type NavLink struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// NavAction is the wallet button on the right of the bar
type NavAction struct {
	Label  string `json:"label"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

// NavigationView is the rendered navigation bar
type NavigationView struct {
	Brand        string    `json:"brand"`
	Connected    bool      `json:"connected"`
	Links        []NavLink `json:"links"`
	ShortAddress string    `json:"shortAddress,omitempty"`
	Action       NavAction `json:"action"`
}

var connectedLinks = []NavLink{
	{Label: "Todos", Path: "/todos"},
	{Label: "Profile", Path: "/profile"},
	{Label: "Settings", Path: "/settings"},
}

// Navigation renders the navigation bar for sess, which may be nil
func Navigation(sess *session.Session, now time.Time) *NavigationView {
	if !sess.Active(now) {
		return &NavigationView{
			Brand:  Brand,
			Links:  []NavLink{},
			Action: NavAction{Label: "Connect Wallet", Method: "POST", Path: "/api/session"},
		}
	}

	links := make([]NavLink, len(connectedLinks))
	copy(links, connectedLinks)
	return &NavigationView{
		Brand:        Brand,
		Connected:    true,
		Links:        links,
		ShortAddress: sess.ShortAddress(),
		Action:       NavAction{Label: "Logout", Method: "DELETE", Path: "/api/session"},
	}
}
