package domain

import "context"

// Profile is the citizen's account record as served by the upstream API.
type Profile struct {
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Phone     string   `json:"phone"`
	Address   *Address `json:"address,omitempty"`
}

type ProfileStore interface {
	GetProfile(ctx context.Context) (*Profile, error)
	// SaveAddress merges a completed address draft into the profile.
	SaveAddress(ctx context.Context, address Address) error
}
