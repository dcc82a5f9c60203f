// Package model contains domain models passed between layers.
package model

import "time"

// Member is a tracked individual with a mutable reputation score.
// Reputation only changes through an award; profile fields may be edited directly.
type Member struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Reputation     int       `json:"reputation"`
	AvatarURL      *string   `json:"avatar_url"`
	GitHubUsername *string   `json:"github_username"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewMember carries the fields accepted when creating a member.
type NewMember struct {
	Name           string  `json:"name"`
	GitHubUsername *string `json:"github_username,omitempty"`
	AvatarURL      *string `json:"avatar_url,omitempty"`
}

// MemberUpdate carries profile metadata changes. Nil fields are left untouched.
type MemberUpdate struct {
	GitHubUsername *string `json:"github_username,omitempty"`
	AvatarURL      *string `json:"avatar_url,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u MemberUpdate) Empty() bool {
	return u.GitHubUsername == nil && u.AvatarURL == nil
}

// HistoryEntry is an immutable audit record of one point award or deduction.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	MemberID  int64     `json:"member_id"`
	Points    int       `json:"points"`
	Reason    string    `json:"reason"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// AwardResult is what the store's atomic award routine reports back.
type AwardResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	NewReputation int    `json:"new_reputation"`
}
