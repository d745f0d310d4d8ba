package supabase

import (
	"context"
	"time"
)

// Table names.
const (
	TableProfiles       = "onboarding_profiles"
	TableGoldenKeys     = "golden_keys"
	TableJournalEntries = "journal_entries"
)

// Store persists onboarding profiles and the records derived from them.
type Store interface {
	// GetProfile retrieves the profile of userID.
	// Returns an error wrapping onboarding.ErrNotFound when none exists.
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// SaveProfile inserts or replaces the profile keyed by UserID.
	SaveProfile(ctx context.Context, profile *Profile) error

	// AddGoldenKeys appends golden keys to a user's record.
	AddGoldenKeys(ctx context.Context, keys []GoldenKey) error

	// CreateJournalEntry stores the user's first journal entry.
	CreateJournalEntry(ctx context.Context, entry *JournalEntry) error

	// Close releases resources
	Close() error
}

// Profile is one user's onboarding profile as stored in onboarding_profiles.
type Profile struct {
	UserID             string                    `json:"user_id"`
	Tier1Responses     map[string]any            `json:"tier1_responses,omitempty"`
	DetectedPatterns   map[string]int            `json:"detected_patterns,omitempty"`
	FlaggedResponses   []string                  `json:"flagged_responses,omitempty"`
	CompletionTime     int                       `json:"completion_time,omitempty"`
	Tier2Responses     map[string]map[string]any `json:"tier2_responses,omitempty"`
	Tier3Responses     map[string]any            `json:"tier3_responses,omitempty"`
	PriorityStatement  string                    `json:"priority_statement,omitempty"`
	PriorityConfidence float64                   `json:"priority_confidence,omitempty"`
	AdviceStyle        string                    `json:"advice_style,omitempty"`
	SelectedVoice      string                    `json:"selected_voice,omitempty"`
	VoicePreviewText   string                    `json:"voice_preview_text,omitempty"`
	VoicePreviews      map[string]string         `json:"voice_previews,omitempty"`
	CompletedAt        *time.Time                `json:"completed_at,omitempty"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

// GoldenKey is one row of golden_keys.
type GoldenKey struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Domain     string    `json:"domain"`
	QuestionID string    `json:"question_id"`
	Text       string    `json:"text"`
	WordCount  int       `json:"word_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// JournalEntry is one row of journal_entries.
type JournalEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Voice     string    `json:"voice"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
