package models

// SocialLinks are optional links shown on a profile
type SocialLinks struct {
	Twitter string `json:"twitter,omitempty"`
	GitHub  string `json:"github,omitempty"`
	Website string `json:"website,omitempty"`
}

// Profile is the payload of a document in the profiles collection, keyed by
// the owning account address
type Profile struct {
	DisplayName string      `json:"displayName"`
	Bio         string      `json:"bio"`
	Avatar      string      `json:"avatar"`
	SocialLinks SocialLinks `json:"socialLinks"`
}

// AnonymousName is shown when an account has no profile or an empty display name
const AnonymousName = "Anonymous"

// NameOrAnonymous returns the display name, or AnonymousName when unset
func (p *Profile) NameOrAnonymous() string {
	if p == nil || p.DisplayName == "" {
		return AnonymousName
	}
	return p.DisplayName
}
