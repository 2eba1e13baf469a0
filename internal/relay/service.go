package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediarelay/internal/artifacts"
	"mediarelay/internal/extraction"
	"mediarelay/internal/fileutil"
	"mediarelay/internal/history"
	"mediarelay/internal/link"
	"mediarelay/internal/logging"
	"mediarelay/internal/media"
	"mediarelay/internal/optimize"
	"mediarelay/internal/services"
	"mediarelay/internal/textutil"
)

const (
	// CaptionFirst attaches the caption to the first delivered item only.
	CaptionFirst = "first"
	// CaptionAll attaches the caption to every delivered item.
	CaptionAll = "all"
)

// Deps are the collaborators a Service drives.
type Deps struct {
	Gateway   Gateway
	Extractor Extractor
	Optimizer Optimizer
	Audio     AudioExtractor
	// Prober is optional; without it audio presence is not checked up front.
	Prober  AudioProber
	Cache   *artifacts.Cache
	Guard   *artifacts.Guard
	History Recorder
}

// Options tunes a Service.
type Options struct {
	// WorkDir receives downloads and artifacts.
	WorkDir string
	// ArtifactTTL is how long a delivered video stays available for a
	// follow-up action; zero uses the cache default.
	ArtifactTTL      time.Duration
	CaptionPolicy    string
	CaptionMaxLength int
	// ProcessingWarning is when the one-shot "still working" notice fires;
	// zero disables it.
	ProcessingWarning time.Duration
	AudioTitle        string
	AudioTimeout      time.Duration
	Logger            *slog.Logger
}

// Service handles inbound text and callback events.
type Service struct {
	gateway   Gateway
	extractor Extractor
	optimizer Optimizer
	audio     AudioExtractor
	prober    AudioProber
	cache     *artifacts.Cache
	guard     *artifacts.Guard
	history   Recorder

	workDir       string
	ttl           time.Duration
	captionPolicy string
	captionMax    int
	warnAfter     time.Duration
	audioTitle    string
	audioTimeout  time.Duration

	now      func() time.Time
	runToken func() string
	logger   *slog.Logger
}

// New validates deps and constructs a Service.
func New(deps Deps, opts Options) (*Service, error) {
	switch {
	case deps.Gateway == nil:
		return nil, services.Wrap(services.ErrConfiguration, "relay", "init", "gateway is required", nil)
	case deps.Extractor == nil:
		return nil, services.Wrap(services.ErrConfiguration, "relay", "init", "extractor is required", nil)
	case deps.Optimizer == nil:
		return nil, services.Wrap(services.ErrConfiguration, "relay", "init", "optimizer is required", nil)
	case deps.Audio == nil:
		return nil, services.Wrap(services.ErrConfiguration, "relay", "init", "audio extractor is required", nil)
	case deps.Cache == nil:
		return nil, services.Wrap(services.ErrConfiguration, "relay", "init", "artifact cache is required", nil)
	case strings.TrimSpace(opts.WorkDir) == "":
		return nil, services.Wrap(services.ErrConfiguration, "relay", "init", "work dir is required", nil)
	}
	guard := deps.Guard
	if guard == nil {
		guard = artifacts.NewGuard()
	}
	var recorder Recorder = (*history.Store)(nil)
	if deps.History != nil {
		recorder = deps.History
	}
	policy := strings.ToLower(strings.TrimSpace(opts.CaptionPolicy))
	if policy != CaptionAll {
		policy = CaptionFirst
	}
	title := strings.TrimSpace(opts.AudioTitle)
	if title == "" {
		title = "Instagram Audio"
	}
	return &Service{
		gateway:       deps.Gateway,
		extractor:     deps.Extractor,
		optimizer:     deps.Optimizer,
		audio:         deps.Audio,
		prober:        deps.Prober,
		cache:         deps.Cache,
		guard:         guard,
		history:       recorder,
		workDir:       opts.WorkDir,
		ttl:           opts.ArtifactTTL,
		captionPolicy: policy,
		captionMax:    opts.CaptionMaxLength,
		warnAfter:     opts.ProcessingWarning,
		audioTitle:    title,
		audioTimeout:  opts.AudioTimeout,
		now:           time.Now,
		runToken:      newRunToken,
		logger:        logging.NewComponentLogger(opts.Logger, "relay"),
	}, nil
}

// HandleText answers a text event. Links start a pipeline run for the
// sender; anything else gets a static reply. Failures inside a run are
// reported to the requester and journaled; the returned error is the run's
// terminal failure, for the caller's diagnostics only.
func (s *Service) HandleText(ctx context.Context, msg TextMessage) error {
	ctx = services.WithOwnerID(ctx, msg.OwnerID)
	text := strings.TrimSpace(msg.Text)

	if isStartCommand(text) {
		s.notify(ctx, msg.ChatID, MessageGreeting)
		return nil
	}
	l, err := link.Classify(text)
	if err != nil {
		s.notify(ctx, msg.ChatID, UserMessage(err))
		return nil
	}
	ctx = services.WithContentID(ctx, l.ContentID)

	err = s.guard.Do(msg.OwnerID, func() error {
		return s.run(ctx, msg, l)
	})
	if errors.Is(err, artifacts.ErrAlreadyProcessing) {
		logging.WithContext(ctx, s.logger).Info("owner already has a run in flight")
		s.notify(ctx, msg.ChatID, MessageBusy)
		return nil
	}
	return err
}

func (s *Service) run(ctx context.Context, msg TextMessage, l link.Link) (runErr error) {
	logger := logging.WithContext(ctx, s.logger)
	record := history.Run{
		OwnerID:   msg.OwnerID,
		ContentID: l.ContentID,
		URL:       l.URL,
		StartedAt: s.now(),
	}
	defer func() {
		record.FinishedAt = s.now()
		if runErr != nil && record.Error == "" {
			record.Error = runErr.Error()
		}
		if err := s.history.Record(context.WithoutCancel(ctx), record); err != nil {
			logging.WarnWithContext(logger, "history record failed", "history_record_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the history database path and permissions"),
				logging.String(logging.FieldImpact, "run missing from the journal"),
			)
		}
	}()

	if superseded := s.cache.StartNewRun(msg.OwnerID); superseded > 0 {
		logger.Debug("superseded previous artifacts", logging.Int("count", superseded))
	}

	if statusID, err := s.gateway.SendText(ctx, msg.ChatID, MessageDownloading); err == nil && statusID != 0 {
		defer s.deleteMessage(ctx, msg.ChatID, statusID)
	}
	stopWarning := s.startWarning(ctx, msg.ChatID)
	defer stopWarning()

	target := extraction.Target{Dir: s.workDir, Stem: textutil.SanitizeToken(l.ContentID) + "-" + s.runToken()}
	logger.Info("relay run started", logging.String("url", l.URL), logging.String("stem", target.Stem))

	result, err := s.extractor.Fetch(ctx, l, target)
	if err != nil {
		record.Outcome = history.OutcomeFailed
		if errors.Is(err, extraction.ErrNoMediaFound) {
			record.Outcome = history.OutcomeNoMedia
		}
		logging.WarnWithContext(logger, "extraction failed", "extraction_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check backend binaries and cookies"),
			logging.String(logging.FieldImpact, "requester received a failure notice"),
		)
		s.notify(ctx, msg.ChatID, UserMessage(err))
		return err
	}
	record.Backend = result.Backend
	record.Items = len(result.Items)

	caption := textutil.CleanCaption(result.Caption, s.captionMax)
	title := audioTitle(result, s.audioTitle)
	s.notify(ctx, msg.ChatID, ProcessingMessage(len(result.Items)))

	captionSent := false
	var failures []error
	for _, item := range result.Items {
		itemCaption := ""
		if s.captionPolicy == CaptionAll || !captionSent {
			itemCaption = caption
		}
		err := s.deliver(ctx, msg, l, item, itemCaption, title)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		record.Delivered++
		if itemCaption != "" {
			captionSent = true
		}
	}
	s.notify(ctx, msg.ChatID, MessageDone)

	switch {
	case record.Delivered == record.Items:
		record.Outcome = history.OutcomeDelivered
	case record.Delivered > 0:
		record.Outcome = history.OutcomePartial
	default:
		record.Outcome = history.OutcomeFailed
	}
	if len(failures) > 0 {
		record.Error = errors.Join(failures...).Error()
	}
	logger.Info("relay run finished",
		logging.String(logging.FieldBackend, result.Backend),
		logging.Int("items", record.Items),
		logging.Int("delivered", record.Delivered),
		logging.String("outcome", string(record.Outcome)),
	)
	return nil
}

// deliver optimizes and sends one item. Every file it touches is either sent
// and removed, parked in the artifact cache, or removed.
func (s *Service) deliver(ctx context.Context, msg TextMessage, l link.Link, item media.Item, caption, title string) error {
	logger := logging.WithContext(ctx, s.logger).With(logging.Int("ordinal", item.Ordinal), logging.String("kind", string(item.Kind)))

	outcome, err := s.optimizer.Optimize(ctx, item)
	if err != nil {
		var oversize *optimize.OversizeError
		if errors.As(err, &oversize) {
			s.notify(ctx, msg.ChatID, OversizeMessage(item.Kind, oversize.SizeMB()))
		} else {
			logging.WarnWithContext(logger, "optimize failed", "optimize_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "item skipped"),
			)
			s.notify(ctx, msg.ChatID, MessageSendFailed)
		}
		s.removeFile(logger, item.Path)
		return err
	}

	if item.Kind == media.KindPhoto {
		err := s.gateway.SendPhoto(ctx, msg.ChatID, outcome.Path, caption)
		s.removeFile(logger, outcome.Path)
		if err != nil {
			s.reportSendFailure(ctx, logger, msg.ChatID, err)
			return err
		}
		return nil
	}

	artifact, err := s.cache.Put(artifacts.Artifact{
		Path:       outcome.Path,
		OwnerID:    msg.OwnerID,
		ContentID:  l.ContentID,
		Kind:       item.Kind,
		AudioTitle: title,
	}, s.ttl)
	if err != nil {
		// No follow-up is possible; deliver the video without controls.
		logger.Debug("artifact not cached", logging.Error(err))
		sendErr := s.gateway.SendVideo(ctx, msg.ChatID, outcome.Path, caption, nil)
		s.removeFile(logger, outcome.Path)
		if sendErr != nil {
			s.reportSendFailure(ctx, logger, msg.ChatID, sendErr)
		}
		return sendErr
	}

	if err := s.gateway.SendVideo(ctx, msg.ChatID, outcome.Path, caption, Controls(artifact.ID)); err != nil {
		s.cache.Evict(artifact.ID)
		s.reportSendFailure(ctx, logger, msg.ChatID, err)
		return err
	}
	logger.Debug("video delivered", logging.String(logging.FieldArtifactID, artifact.ID))
	return nil
}

// startWarning schedules the one-shot "still working" notice. The returned
// func cancels it; the run itself is never aborted.
func (s *Service) startWarning(ctx context.Context, chatID int64) func() {
	if s.warnAfter <= 0 {
		return func() {}
	}
	var once sync.Once
	timer := time.AfterFunc(s.warnAfter, func() {
		once.Do(func() { s.notify(ctx, chatID, MessageStillWorking) })
	})
	return func() { timer.Stop() }
}

func (s *Service) notify(ctx context.Context, chatID int64, text string) {
	if text == "" {
		return
	}
	if _, err := s.gateway.SendText(ctx, chatID, text); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "send notice failed", "notice_send_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check bot token and network reachability"),
			logging.String(logging.FieldImpact, "requester missed a status notice"),
		)
	}
}

func (s *Service) deleteMessage(ctx context.Context, chatID int64, messageID int) {
	if err := s.gateway.DeleteMessage(context.WithoutCancel(ctx), chatID, messageID); err != nil {
		logging.WithContext(ctx, s.logger).Debug("delete status message failed", logging.Error(err))
	}
}

func (s *Service) reportSendFailure(ctx context.Context, logger *slog.Logger, chatID int64, err error) {
	logging.WarnWithContext(logger, "media send failed", "media_send_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check upload limits and gateway connectivity"),
		logging.String(logging.FieldImpact, "item not delivered"),
	)
	s.notify(ctx, chatID, MessageSendFailed)
}

func (s *Service) removeFile(logger *slog.Logger, path string) {
	if err := fileutil.RemoveIfExists(path); err != nil {
		logger.Warn("remove media file", logging.String("path", path), logging.Error(err))
	}
}

func isStartCommand(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	cmd := fields[0]
	return cmd == "/start" || strings.HasPrefix(cmd, "/start@")
}

func audioTitle(result media.ExtractionResult, fallback string) string {
	track := strings.TrimSpace(result.Track)
	artist := strings.TrimSpace(result.Artist)
	switch {
	case track != "" && artist != "":
		return fmt.Sprintf("%s - %s", track, artist)
	case track != "":
		return track
	default:
		return fallback
	}
}

func newRunToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
