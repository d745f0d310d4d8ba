package profileapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	onboarding "github.com/creastat/onboarding"
	"github.com/creastat/onboarding/api"
	"github.com/creastat/onboarding/patterns"
	"github.com/creastat/onboarding/question"
	"github.com/creastat/onboarding/questionbank"
	"github.com/creastat/onboarding/supabase"
	"github.com/creastat/onboarding/vectorstore"
	"github.com/creastat/onboarding/voice"
)

const (
	defaultSimilarLimit = 5
	maxSimilarLimit     = 50

	// JournalKindWelcome marks the first journal entry written at the end of
	// onboarding.
	JournalKindWelcome = "welcome"

	journalWarning = "Your voice was saved, but your first journal entry could not be created yet."
)

func failure(c echo.Context, status int, msg string) error {
	return c.JSON(status, api.Result{Success: false, Error: msg})
}

// handleQuestions serves the static question sets. Tier 2 is adapted to the
// stored pattern scores and tier 3 carries the synthesized priority.
func (s *Server) handleQuestions(c echo.Context) error {
	tier, err := strconv.Atoi(c.QueryParam("tier"))
	if err != nil || tier < 1 || tier > 3 {
		return failure(c, http.StatusBadRequest, "tier must be 1, 2 or 3")
	}
	userID := c.QueryParam("userId")
	ctx := c.Request().Context()

	if tier == 1 {
		resp, _ := questionbank.Static(questionbank.Request{Tier: 1})
		return c.JSON(http.StatusOK, resp)
	}

	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load profile", zap.String("user_id", userID), zap.Error(err))
		return failure(c, http.StatusInternalServerError, "failed to load profile")
	}
	scores := scoresOf(profile)

	if tier == 2 {
		resp, _ := questionbank.Static(questionbank.Request{
			Tier:       2,
			UserID:     userID,
			Scores:     scores,
			AgeBracket: ageRangeOf(profile),
			Guidance:   questionbank.AdaptiveText(scores),
		})
		return c.JSON(http.StatusOK, resp)
	}

	synthesis := s.synth.Synthesize(scores)
	return c.JSON(http.StatusOK, api.QuestionsResponse{
		Success:   true,
		Tier:      3,
		Questions: questionbank.Tier3(&synthesis),
	})
}

func (s *Server) handleTier1(c echo.Context) error {
	var sub api.Tier1Submission
	if err := c.Bind(&sub); err != nil {
		s.logger.Warn("invalid tier1 request", zap.Error(err))
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(sub.UserID) == "" {
		return failure(c, http.StatusBadRequest, "userId is required")
	}
	if len(sub.Responses) == 0 {
		return failure(c, http.StatusBadRequest, "responses are required")
	}
	ctx := c.Request().Context()

	profile, err := s.loadProfile(ctx, sub.UserID)
	if err != nil {
		s.logger.Error("failed to load profile", zap.String("user_id", sub.UserID), zap.Error(err))
		return failure(c, http.StatusInternalServerError, "failed to load profile")
	}
	profile.Tier1Responses = sub.Responses
	profile.DetectedPatterns = patternMap(sub.DetectedPatterns)
	profile.FlaggedResponses = sub.FlaggedResponses
	profile.CompletionTime = sub.CompletionTime
	if err := s.saveProfile(ctx, profile); err != nil {
		return failure(c, http.StatusInternalServerError, "failed to save profile")
	}

	scores := scoresOf(profile)
	s.indexTraits(ctx, profile.UserID, scores, ageRangeOf(profile))

	return c.JSON(http.StatusOK, api.Tier1Result{
		Success:          true,
		AdaptiveGuidance: questionbank.AdaptiveText(scores),
	})
}

func (s *Server) handleTier2(c echo.Context) error {
	var sub api.Tier2Submission
	if err := c.Bind(&sub); err != nil {
		s.logger.Warn("invalid tier2 request", zap.Error(err))
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(sub.UserID) == "" {
		return failure(c, http.StatusBadRequest, "userId is required")
	}
	if len(sub.DomainResponses) == 0 {
		return failure(c, http.StatusBadRequest, "domainResponses are required")
	}
	ctx := c.Request().Context()

	profile, err := s.loadProfile(ctx, sub.UserID)
	if err != nil {
		s.logger.Error("failed to load profile", zap.String("user_id", sub.UserID), zap.Error(err))
		return failure(c, http.StatusInternalServerError, "failed to load profile")
	}
	profile.Tier2Responses = sub.DomainResponses
	if err := s.saveProfile(ctx, profile); err != nil {
		return failure(c, http.StatusInternalServerError, "failed to save profile")
	}

	if len(sub.GoldenKeys) > 0 {
		now := s.now().UTC()
		rows := make([]supabase.GoldenKey, 0, len(sub.GoldenKeys))
		for _, k := range sub.GoldenKeys {
			created := k.Timestamp
			if created.IsZero() {
				created = now
			}
			rows = append(rows, supabase.GoldenKey{
				ID:         uuid.NewString(),
				UserID:     sub.UserID,
				Domain:     k.Domain,
				QuestionID: k.QuestionID,
				Text:       k.Text,
				WordCount:  k.WordCount,
				CreatedAt:  created,
			})
		}
		if err := s.store.AddGoldenKeys(ctx, rows); err != nil {
			s.logger.Error("failed to store golden keys",
				zap.String("user_id", sub.UserID),
				zap.Int("count", len(rows)),
				zap.Error(err))
			return failure(c, http.StatusInternalServerError, "failed to store golden keys")
		}
	}

	return c.JSON(http.StatusOK, api.Result{Success: true})
}

func (s *Server) handleTier3(c echo.Context) error {
	var sub api.Tier3Submission
	if err := c.Bind(&sub); err != nil {
		s.logger.Warn("invalid tier3 request", zap.Error(err))
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(sub.UserID) == "" {
		return failure(c, http.StatusBadRequest, "userId is required")
	}

	advice, _ := sub.Responses[questionbank.AdviceStyleQuestionID].(string)
	if _, ok := questionbank.VoiceForAdviceStyle(advice); !ok {
		return failure(c, http.StatusBadRequest, "advice_style is required")
	}
	ctx := c.Request().Context()

	profile, err := s.loadProfile(ctx, sub.UserID)
	if err != nil {
		s.logger.Error("failed to load profile", zap.String("user_id", sub.UserID), zap.Error(err))
		return failure(c, http.StatusInternalServerError, "failed to load profile")
	}

	synthesis := s.synth.Synthesize(scoresOf(profile))
	statement, confidence := synthesis.Statement, synthesis.Confidence
	if priority, _ := sub.Responses[questionbank.PriorityQuestionID].(string); priority == question.PriorityOverride {
		text, _ := sub.Responses[questionbank.OverrideTextID].(string)
		if strings.TrimSpace(text) == "" {
			return failure(c, http.StatusBadRequest, "override_text is required when overriding the priority")
		}
		statement, confidence = strings.TrimSpace(text), 1
	}

	profile.Tier3Responses = sub.Responses
	profile.PriorityStatement = statement
	profile.PriorityConfidence = confidence
	profile.AdviceStyle = advice
	if err := s.saveProfile(ctx, profile); err != nil {
		return failure(c, http.StatusInternalServerError, "failed to save profile")
	}
	return c.JSON(http.StatusOK, api.Result{Success: true})
}

func (s *Server) handleVoicePreviews(c echo.Context) error {
	var req api.PreviewRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid voice preview request", zap.Error(err))
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return failure(c, http.StatusBadRequest, "userId is required")
	}
	voices := req.Voices
	if len(voices) == 0 {
		voices = voice.All
	}
	for _, id := range voices {
		if !id.Valid() {
			return failure(c, http.StatusBadRequest, fmt.Sprintf("unknown voice %q", id))
		}
	}
	ctx := c.Request().Context()

	profile, err := s.loadProfile(ctx, req.UserID)
	if err != nil {
		s.logger.Error("failed to load profile", zap.String("user_id", req.UserID), zap.Error(err))
		return failure(c, http.StatusInternalServerError, "failed to load profile")
	}
	focus := profile.PriorityStatement
	if focus == "" {
		focus = s.synth.Synthesize(scoresOf(profile)).Statement
	}

	previews := make(map[voice.ID]string, len(voices))
	for _, id := range voices {
		text, err := s.previews.Preview(ctx, id, focus)
		if err != nil {
			s.logger.Error("failed to generate voice preview", zap.String("voice", string(id)), zap.Error(err))
			return failure(c, http.StatusInternalServerError, "failed to generate voice previews")
		}
		previews[id] = text
	}

	return c.JSON(http.StatusOK, api.PreviewResult{
		Success:  true,
		Previews: previews,
		Metadata: map[string]any{
			"generated_at": s.now().UTC().Format(time.RFC3339),
			"focus":        focus,
		},
	})
}

// handleVoiceSelection completes the profile, then writes the first journal
// entry. A failed journal write still answers success, with a warning.
func (s *Server) handleVoiceSelection(c echo.Context) error {
	var sel api.VoiceSelection
	if err := c.Bind(&sel); err != nil {
		s.logger.Warn("invalid voice selection request", zap.Error(err))
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(sel.UserID) == "" {
		return failure(c, http.StatusBadRequest, "userId is required")
	}
	if !sel.SelectedVoice.Valid() {
		return failure(c, http.StatusBadRequest, fmt.Sprintf("unknown voice %q", sel.SelectedVoice))
	}
	ctx := c.Request().Context()

	profile, err := s.loadProfile(ctx, sel.UserID)
	if err != nil {
		s.logger.Error("failed to load profile", zap.String("user_id", sel.UserID), zap.Error(err))
		return failure(c, http.StatusInternalServerError, "failed to load profile")
	}
	now := s.now().UTC()
	profile.SelectedVoice = string(sel.SelectedVoice)
	profile.VoicePreviewText = sel.VoicePreviewText
	profile.VoicePreviews = make(map[string]string, len(sel.VoicePreviews))
	for id, text := range sel.VoicePreviews {
		profile.VoicePreviews[string(id)] = text
	}
	profile.CompletedAt = &now
	if err := s.saveProfile(ctx, profile); err != nil {
		return failure(c, http.StatusInternalServerError, "failed to save profile")
	}

	entry := &supabase.JournalEntry{
		ID:        uuid.NewString(),
		UserID:    sel.UserID,
		Voice:     string(sel.SelectedVoice),
		Kind:      JournalKindWelcome,
		Content:   sel.VoicePreviewText,
		CreatedAt: now,
	}
	if err := s.store.CreateJournalEntry(ctx, entry); err != nil {
		s.logger.Warn("profile saved without first journal entry",
			zap.String("user_id", sel.UserID),
			zap.Error(err))
		return c.JSON(http.StatusOK, api.VoiceSelectionResult{
			Success:        true,
			Warning:        journalWarning,
			JournalCreated: false,
			StoredAt:       &now,
		})
	}

	s.logger.Info("onboarding completed",
		zap.String("user_id", sel.UserID),
		zap.String("voice", string(sel.SelectedVoice)))

	return c.JSON(http.StatusOK, api.VoiceSelectionResult{
		Success:        true,
		JournalCreated: true,
		JournalEntryID: entry.ID,
		StoredAt:       &now,
	})
}

// handleSimilar lists onboarded users whose trait vectors are closest to
// the requesting user's.
func (s *Server) handleSimilar(c echo.Context) error {
	if s.index == nil {
		return failure(c, http.StatusServiceUnavailable, "trait index is not configured")
	}
	userID := c.QueryParam("userId")
	if strings.TrimSpace(userID) == "" {
		return failure(c, http.StatusBadRequest, "userId is required")
	}
	limit := defaultSimilarLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return failure(c, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxSimilarLimit)
	}
	ctx := c.Request().Context()

	profile, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, onboarding.ErrNotFound) {
		return failure(c, http.StatusNotFound, "profile not found")
	}
	if err != nil {
		s.logger.Error("failed to load profile", zap.String("user_id", userID), zap.Error(err))
		return failure(c, http.StatusInternalServerError, "failed to load profile")
	}

	users := []api.SimilarUser{}
	scores := scoresOf(profile)
	if scores.Total() > 0 {
		results, err := s.index.Search(ctx, scores.Vector(), vectorstore.SearchFilter{
			ExcludeUserID: userID,
			AgeRange:      c.QueryParam("ageRange"),
		}, limit)
		if err != nil {
			s.logger.Error("trait search failed", zap.String("user_id", userID), zap.Error(err))
			return failure(c, http.StatusInternalServerError, "failed to search similar users")
		}
		for _, r := range results {
			users = append(users, api.SimilarUser{UserID: r.UserID, AgeRange: r.AgeRange, Score: r.Score})
		}
	}

	return c.JSON(http.StatusOK, api.SimilarResult{Success: true, Users: users})
}

// loadProfile returns the stored profile of userID, or a new one.
func (s *Server) loadProfile(ctx context.Context, userID string) (*supabase.Profile, error) {
	if userID == "" {
		return &supabase.Profile{}, nil
	}
	profile, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, onboarding.ErrNotFound) {
		return &supabase.Profile{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *Server) saveProfile(ctx context.Context, profile *supabase.Profile) error {
	profile.UpdatedAt = s.now().UTC()
	if err := s.store.SaveProfile(ctx, profile); err != nil {
		s.logger.Error("failed to save profile", zap.String("user_id", profile.UserID), zap.Error(err))
		return err
	}
	return nil
}

// indexTraits upserts the user's trait vector. Index failures never fail
// the submission.
func (s *Server) indexTraits(ctx context.Context, userID string, scores patterns.Scores, ageRange string) {
	if s.index == nil {
		return
	}
	if err := s.index.Upsert(ctx, vectorstore.NewPoint(userID, scores, ageRange, s.now())); err != nil {
		s.logger.Warn("failed to index trait vector", zap.String("user_id", userID), zap.Error(err))
	}
}

func patternMap(scores patterns.Scores) map[string]int {
	out := make(map[string]int, len(patterns.Traits))
	for _, t := range patterns.Traits {
		out[string(t)] = scores[t]
	}
	return out
}

func scoresOf(p *supabase.Profile) patterns.Scores {
	scores := patterns.NewScores()
	for _, t := range patterns.Traits {
		scores[t] = p.DetectedPatterns[string(t)]
	}
	return scores
}

func ageRangeOf(p *supabase.Profile) string {
	age, _ := p.Tier1Responses[questionbank.AgeRangeID].(string)
	return age
}
