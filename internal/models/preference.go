// internal/models/preference.go
package models

import (
	"sort"
	"strings"
	"time"
)

// PreferenceMode selects between firehose and curated delivery.
type PreferenceMode string

const (
	PreferenceModeAll      PreferenceMode = "ALL"
	PreferenceModeSelected PreferenceMode = "SELECTED"
)

// MatchPolicy controls how SELECTED-mode preferences match an event.
type MatchPolicy string

const (
	MatchPolicyCategoryOnly          MatchPolicy = "CATEGORY_ONLY"
	MatchPolicyCategoryTagsOrSymbols MatchPolicy = "CATEGORY_OR_TAGS_OR_SYMBOLS"
)

// NotificationPreferences is the per-user delivery preference row.
// Exactly one row exists per user, created lazily with defaults.
type NotificationPreferences struct {
	UserID          string         `json:"user_id"`
	Enabled         bool           `json:"enabled"`
	NotifyOnNew     bool           `json:"notify_on_new"`
	NotifyOnUpdates bool           `json:"notify_on_updates"`
	Mode            PreferenceMode `json:"mode"`
	Categories      []string       `json:"categories"`
	Tags            []string       `json:"tags"`
	Symbols         []string       `json:"symbols"`
	MatchPolicy     MatchPolicy    `json:"match_policy"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// DefaultPreferences returns the lazily-created defaults: everything on,
// firehose mode.
func DefaultPreferences(userID string) NotificationPreferences {
	return NotificationPreferences{
		UserID:          userID,
		Enabled:         true,
		NotifyOnNew:     true,
		NotifyOnUpdates: true,
		Mode:            PreferenceModeAll,
		MatchPolicy:     MatchPolicyCategoryOnly,
		Categories:      []string{},
		Tags:            []string{},
		Symbols:         []string{},
	}
}

// FollowType identifies what a follow row subscribes to.
type FollowType string

const (
	FollowTypeTag      FollowType = "TAG"
	FollowTypeSymbol   FollowType = "SYMBOL"
	FollowTypeStrategy FollowType = "STRATEGY"
)

// Follow is an explicit subscription that matches regardless of mode and
// match policy.
type Follow struct {
	UserID    string     `json:"user_id"`
	Type      FollowType `json:"type"`
	Value     string     `json:"value"`
	CreatedAt time.Time  `json:"created_at"`
}

// NormalizeSet canonicalizes a tag/symbol/category list: trim, lower-case,
// dedupe, sort. Normalization happens once at write time so every read and
// every fan-out comparison sees the same shape.
func NormalizeSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
