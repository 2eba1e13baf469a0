package relay

import (
	"context"
	"fmt"

	"mediarelay/internal/artifacts"
	"mediarelay/internal/fileutil"
	"mediarelay/internal/logging"
	"mediarelay/internal/media"
	"mediarelay/internal/services"
)

// HandleCallback runs the follow-up action a control payload names. The
// callback is always acknowledged. Whatever happens, a consumed video does
// not outlive this call.
func (s *Service) HandleCallback(ctx context.Context, cb CallbackAction) error {
	ctx = services.WithOwnerID(ctx, cb.OwnerID)
	logger := logging.WithContext(ctx, s.logger)

	action, err := ParseAction(cb.Data)
	if err != nil {
		logger.Debug("ignoring unknown callback data", logging.String("data", cb.Data))
		s.answer(ctx, cb.CallbackID, MessageUnknownAction)
		return nil
	}
	logger = logger.With(logging.String(logging.FieldArtifactID, action.ArtifactID), logging.String("action", string(action.Kind)))

	if a, ok := s.cache.Get(action.ArtifactID); ok && a.OwnerID != cb.OwnerID {
		logger.Info("callback from non-owner ignored", logging.Int64("artifact_owner", a.OwnerID))
		s.answer(ctx, cb.CallbackID, MessageNotYours)
		return nil
	}
	s.answer(ctx, cb.CallbackID, "")

	lease, err := s.cache.Consume(action.ArtifactID)
	if err != nil {
		logger.Info("artifact unavailable", logging.Error(err))
		s.notify(ctx, cb.ChatID, UserMessage(err))
		return err
	}
	defer func() {
		if closeErr := lease.Close(); closeErr != nil {
			logger.Debug("lease close", logging.Error(closeErr))
		}
	}()

	switch action.Kind {
	case ActionDiscard:
		logger.Info("video discarded")
		s.notify(ctx, cb.ChatID, MessageDiscarded)
		return nil
	default:
		err := s.extractAudio(ctx, cb.ChatID, lease)
		if err != nil {
			logging.WarnWithContext(logger, "audio extraction failed", "audio_extraction_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ffmpeg output for this video"),
				logging.String(logging.FieldImpact, "requester received a failure notice"),
			)
			s.notify(ctx, cb.ChatID, UserMessage(err))
		}
		return err
	}
}

func (s *Service) extractAudio(ctx context.Context, chatID int64, lease *artifacts.Lease) error {
	video := lease.Path()
	if s.prober != nil {
		hasAudio, err := s.prober.HasAudio(ctx, video)
		if err != nil {
			return fmt.Errorf("%w: probe: %w", ErrSecondaryActionFailure, err)
		}
		if !hasAudio {
			return fmt.Errorf("%w: video has no audio stream", ErrSecondaryActionFailure)
		}
	}

	audioPath := media.Sibling(video, "_audio.mp3")
	defer func() {
		if err := fileutil.RemoveIfExists(audioPath); err != nil {
			logging.WithContext(ctx, s.logger).Warn("remove extracted audio", logging.Error(err))
		}
	}()

	extractCtx := ctx
	if s.audioTimeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, s.audioTimeout)
		defer cancel()
	}
	if err := s.audio.ExtractAudio(extractCtx, video, audioPath); err != nil {
		return fmt.Errorf("%w: %w", ErrSecondaryActionFailure, err)
	}
	if !fileutil.Exists(audioPath) {
		return fmt.Errorf("%w: no audio written", ErrSecondaryActionFailure)
	}

	s.notify(ctx, chatID, MessageAudioSending)
	title := lease.Artifact().AudioTitle
	if title == "" {
		title = s.audioTitle
	}
	if err := s.gateway.SendAudio(ctx, chatID, audioPath, title); err != nil {
		return fmt.Errorf("%w: send audio: %w", ErrSecondaryActionFailure, err)
	}
	return nil
}

func (s *Service) answer(ctx context.Context, callbackID, text string) {
	if callbackID == "" {
		return
	}
	if err := s.gateway.AnswerCallback(ctx, callbackID, text); err != nil {
		logging.WithContext(ctx, s.logger).Debug("answer callback failed", logging.Error(err))
	}
}

