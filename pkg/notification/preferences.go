package notification

import "github.com/google/uuid"

// Preferences holds a user's delivery opt-ins. The zero value (no record in
// the store) means everything is enabled; explicit records can switch off
// individual channels or notification types.
type Preferences struct {
	UserID           uuid.UUID        `json:"user_id"`
	DisabledChannels map[Channel]bool `json:"disabled_channels,omitempty"`
	DisabledTypes    map[Type]bool    `json:"disabled_types,omitempty"`
	PushTokens       []string         `json:"push_tokens,omitempty"`
}

// Allows reports whether the user accepts notifications of the given type on
// the given channel.
func (p *Preferences) Allows(t Type, ch Channel) bool {
	if p == nil {
		return true
	}
	if p.DisabledChannels[ch] {
		return false
	}
	if p.DisabledTypes[t] {
		return false
	}
	return true
}
