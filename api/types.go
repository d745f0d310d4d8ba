// Package api holds the request and response contracts of the onboarding
// profile service. Both the remote client and the reference server use these
// types, so the static question fallback and the wire format cannot drift.
package api

import (
	"time"

	"github.com/creastat/onboarding/goldenkey"
	"github.com/creastat/onboarding/patterns"
	"github.com/creastat/onboarding/question"
	"github.com/creastat/onboarding/voice"
)

// Endpoint paths, relative to the service base URL.
const (
	PathQuestions      = "/api/onboarding/questions"
	PathTier1          = "/api/onboarding/tier1"
	PathTier2          = "/api/onboarding/tier2"
	PathTier3          = "/api/onboarding/tier3"
	PathVoicePreviews  = "/api/onboarding/voice-previews"
	PathVoiceSelection = "/api/onboarding/voice-selection"
	PathSimilar        = "/api/onboarding/similar"
)

// QuestionsResponse answers GET questions. Tier 2 fills Domains instead of
// Questions.
type QuestionsResponse struct {
	Success   bool                       `json:"success"`
	Tier      int                        `json:"tier,omitempty"`
	Questions []question.Question        `json:"questions,omitempty"`
	Domains   map[string]question.Domain `json:"domains,omitempty"`
	Error     string                     `json:"error,omitempty"`
}

// Tier1Submission is the body of POST tier1.
type Tier1Submission struct {
	UserID           string          `json:"userId"`
	Responses        map[string]any  `json:"responses"`
	DetectedPatterns patterns.Scores `json:"detected_patterns"`
	FlaggedResponses []string        `json:"flagged_responses,omitempty"`
	CompletionTime   int             `json:"completion_time"`
}

// Tier1Result answers POST tier1.
type Tier1Result struct {
	Success          bool   `json:"success"`
	AdaptiveGuidance string `json:"adaptive_guidance,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Tier2Submission is the body of POST tier2. GoldenKeys is always a list,
// never null.
type Tier2Submission struct {
	UserID          string                    `json:"userId"`
	DomainResponses map[string]map[string]any `json:"domainResponses"`
	GoldenKeys      []goldenkey.GoldenKey     `json:"goldenKeys"`
}

// Tier3Submission is the body of POST tier3.
type Tier3Submission struct {
	UserID    string         `json:"userId"`
	Responses map[string]any `json:"responses"`
}

// Result is the generic success/error response.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PreviewRequest is the body of POST voice-previews. An empty Voices list
// asks for every voice.
type PreviewRequest struct {
	UserID string     `json:"userId"`
	Voices []voice.ID `json:"voices,omitempty"`
}

// PreviewResult answers POST voice-previews.
type PreviewResult struct {
	Success  bool                `json:"success"`
	Previews map[voice.ID]string `json:"previews"`
	Metadata map[string]any      `json:"metadata,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// VoiceSelection is the body of POST voice-selection.
type VoiceSelection struct {
	UserID           string              `json:"userId"`
	SelectedVoice    voice.ID            `json:"selected_voice"`
	VoicePreviewText string              `json:"voice_preview_text"`
	VoicePreviews    map[voice.ID]string `json:"voice_previews"`
}

// VoiceSelectionResult answers POST voice-selection. Success with a Warning
// means the profile was saved but a dependent record was not.
type VoiceSelectionResult struct {
	Success        bool       `json:"success"`
	Warning        string     `json:"warning,omitempty"`
	JournalCreated bool       `json:"journal_created"`
	JournalEntryID string     `json:"journal_entry_id,omitempty"`
	StoredAt       *time.Time `json:"stored_at,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// SimilarUser is one match of GET similar.
type SimilarUser struct {
	UserID   string  `json:"user_id"`
	AgeRange string  `json:"age_range,omitempty"`
	Score    float32 `json:"score"`
}

// SimilarResult answers GET similar: onboarded users whose trait vector is
// closest to the requesting user's.
type SimilarResult struct {
	Success bool          `json:"success"`
	Users   []SimilarUser `json:"users"`
	Error   string        `json:"error,omitempty"`
}
