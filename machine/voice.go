package machine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	onboarding "github.com/creastat/onboarding"
	"github.com/creastat/onboarding/api"
	"github.com/creastat/onboarding/voice"
)

func voiceErr(err error) error {
	switch {
	case errors.Is(err, voice.ErrWrongPhase):
		return fmt.Errorf("%w: %w", onboarding.ErrInvalidEvent, err)
	case errors.Is(err, voice.ErrInvalidVoice), errors.Is(err, voice.ErrNotOffered):
		return fmt.Errorf("%w: %w", onboarding.ErrValidation, err)
	}
	return err
}

func flowOf(s *Snapshot) (*voice.Flow, error) {
	if s.Step != StepVoiceSelection || s.Voice == nil {
		return nil, fmt.Errorf("%w: no voice selection in %s", onboarding.ErrInvalidEvent, s.Step)
	}
	return voice.Restore(*s.Voice)
}

func saveFlow(s *Snapshot, f *voice.Flow) {
	st := f.State()
	s.Voice = &st
}

// requestPreview generates the preview of the pending voice, if any.
func (m *Machine) requestPreview(ctx context.Context, s *Snapshot) error {
	f, err := flowOf(s)
	if err != nil {
		return err
	}
	id, ok := f.Pending()
	if !ok {
		return nil
	}

	res, err := m.cfg.Remote.GeneratePreviews(ctx, api.PreviewRequest{
		UserID: s.UserID,
		Voices: []voice.ID{id},
	})
	var text string
	switch {
	case err != nil:
	case res == nil || !res.Success:
		err = unsuccessful(previewError(res))
	default:
		if text = res.Previews[id]; text == "" {
			err = fmt.Errorf("%w: no preview returned for %s", onboarding.ErrRemote, id)
		}
	}
	if err != nil {
		return m.fail(s, SubmitVoicePreview, err)
	}
	m.succeeded(SubmitVoicePreview)

	if err := f.ShowPreview(id, text); err != nil {
		return voiceErr(err)
	}
	saveFlow(s, f)
	s.Error = nil
	return nil
}

func previewError(res *api.PreviewResult) string {
	if res == nil {
		return ""
	}
	return res.Error
}

func (m *Machine) rejectVoice(s *Snapshot) error {
	f, err := flowOf(s)
	if err != nil {
		return err
	}
	if err := f.Reject(); err != nil {
		return voiceErr(err)
	}
	saveFlow(s, f)
	s.Error = nil
	return nil
}

// chooseVoice picks an alternative. During the forced final choice the pick
// is final and the selection is submitted right away.
func (m *Machine) chooseVoice(ctx context.Context, s *Snapshot, ev ChooseVoice) error {
	f, err := flowOf(s)
	if err != nil {
		return err
	}
	confirmed, err := f.Choose(ev.Voice)
	if err != nil {
		return voiceErr(err)
	}
	saveFlow(s, f)
	s.Error = nil
	if confirmed {
		return m.finalizeVoice(ctx, s)
	}
	return m.requestPreview(ctx, s)
}

func (m *Machine) acceptVoice(ctx context.Context, s *Snapshot) error {
	f, err := flowOf(s)
	if err != nil {
		return err
	}
	if _, err := f.Accept(); err != nil {
		return voiceErr(err)
	}
	saveFlow(s, f)
	s.Error = nil
	return m.finalizeVoice(ctx, s)
}

// finalizeVoice submits the confirmed voice. A warning response is shown for
// WarningDelay and then the session closes anyway.
func (m *Machine) finalizeVoice(ctx context.Context, s *Snapshot) error {
	f, err := flowOf(s)
	if err != nil {
		return err
	}
	sel, err := f.Selection()
	if err != nil {
		return voiceErr(err)
	}

	res, err := m.cfg.Remote.FinalizeVoice(ctx, api.VoiceSelection{
		UserID:           s.UserID,
		SelectedVoice:    sel.Voice,
		VoicePreviewText: sel.PreviewText,
		VoicePreviews:    sel.Previews,
	})
	if err == nil && (res == nil || !res.Success) {
		msg := ""
		if res != nil {
			msg = res.Error
		}
		err = unsuccessful(msg)
	}
	if err != nil {
		return m.fail(s, SubmitVoiceSelection, err)
	}
	m.succeeded(SubmitVoiceSelection)
	m.logger.Info("voice selected",
		zap.String("voice", string(sel.Voice)),
		zap.Bool("journal_created", res.JournalCreated))

	if res.Warning != "" {
		s.Warning = res.Warning
		m.logger.Warn("voice selection saved with warning", zap.String("warning", res.Warning))
		// The selection is already stored remotely; closing is committed by
		// Dispatch even when this intermediate save fails.
		if err := m.commit(ctx, s.Clone()); err != nil {
			m.logger.Warn("failed to save warning snapshot, closing anyway", zap.Error(err))
		}
		if err := m.cfg.Sleep(ctx, m.cfg.WarningDelay); err != nil {
			m.logger.Debug("warning delay interrupted", zap.Error(err))
		}
	}
	s.Step = StepClosing
	s.Error = nil
	return nil
}
