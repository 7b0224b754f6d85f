package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"downloadgateway/internal/extractor"
	"downloadgateway/internal/model"
	"downloadgateway/internal/storage"
	"downloadgateway/pkg/logger"
	"downloadgateway/pkg/metrics"
	"downloadgateway/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Operational constants of one extraction session
const (
	ExtractionTimeout = 5 * time.Minute
	SessionTimeout    = 30 * time.Second
	SessionMaxRetry   = 3
	FolderName        = "APIDownload"
	NameFormat        = "API_title"
	ImageFormat       = "PNG"
	Language          = "zh_CN"
)

var (
	// ErrExtractorUnavailable means the extraction backend was never set up
	ErrExtractorUnavailable = errors.New("download module unavailable")
	// ErrNoContent means the extractor finished without any result
	ErrNoContent = errors.New("no content retrieved")
)

// ClientInputError is a request rejected before any extraction work
type ClientInputError struct {
	Err error
}

func (e *ClientInputError) Error() string { return "invalid request: " + e.Err.Error() }

func (e *ClientInputError) Unwrap() error { return e.Err }

// OutcomeKind discriminates DownloadOutcome
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota + 1
	OutcomeFailure
)

// DownloadOutcome is produced exactly once per admitted request
type DownloadOutcome struct {
	Kind        OutcomeKind
	URL         string
	Results     []extractor.Record // Success only, in extractor order
	CompletedAt time.Time          // Success only
	Reason      string             // Failure only
}

// Succeeded reports whether the outcome is a Success
func (o *DownloadOutcome) Succeeded() bool { return o.Kind == OutcomeSuccess }

// ResultCount returns the number of extracted records
func (o *DownloadOutcome) ResultCount() int { return len(o.Results) }

// DownloadService drives one extractor session per download request
type DownloadService struct {
	factory        extractor.Factory
	storage        *storage.Manager
	metrics        *metrics.Metrics
	allowedDomains []string
	timeout        time.Duration
	newID          func() string
}

// NewDownloadService creates a new download service
func NewDownloadService(factory extractor.Factory, sm *storage.Manager, m *metrics.Metrics, cfg *model.Config) *DownloadService {
	return &DownloadService{
		factory:        factory,
		storage:        sm,
		metrics:        m,
		allowedDomains: cfg.Security.AllowedDomains,
		timeout:        ExtractionTimeout,
		newID:          uuid.NewString,
	}
}

// HandleDownload validates req, runs one extraction and maps the result.
// Extraction failures are returned as a Failure outcome, not as an error.
// The error is non-nil only for a *ClientInputError or ErrExtractorUnavailable.
func (s *DownloadService) HandleDownload(ctx context.Context, req model.DownloadRequest, identity model.ClientIdentity) (*DownloadOutcome, error) {
	if err := validator.ValidateURL(req.URL, s.allowedDomains); err != nil {
		s.metrics.ObserveDownload(metrics.OutcomeRejected, 0)
		return nil, &ClientInputError{Err: err}
	}
	sub, err := validator.CleanSavePath(req.SavePath)
	if err != nil {
		s.metrics.ObserveDownload(metrics.OutcomeRejected, 0)
		return nil, &ClientInputError{Err: err}
	}

	if err := s.factory.Available(); err != nil {
		logger.LogError("Extractor unavailable", err, zap.String("client_id", identity.ClientID))
		s.metrics.ObserveDownload(metrics.OutcomeInternal, 0)
		return nil, fmt.Errorf("%w: %w", ErrExtractorUnavailable, err)
	}

	sessionID := s.newID()
	log := logger.Logger.With(
		zap.String("session_id", sessionID),
		zap.String("client_id", identity.ClientID),
		zap.String("url", req.URL),
	)
	log.Info("Download request")

	start := time.Now()
	outcome, err := s.run(ctx, log, sessionID, sub, req)
	if err != nil {
		s.metrics.ObserveDownload(metrics.OutcomeInternal, time.Since(start))
		return nil, err
	}

	switch {
	case outcome.Succeeded():
		s.metrics.ObserveDownload(metrics.OutcomeSuccess, time.Since(start))
		log.Info("Download completed", zap.Int("result_count", outcome.ResultCount()))
	case outcome.Reason == ErrNoContent.Error():
		s.metrics.ObserveDownload(metrics.OutcomeNoContent, time.Since(start))
		log.Warn("Download returned no content")
	default:
		s.metrics.ObserveDownload(metrics.OutcomeFailure, time.Since(start))
		log.Error("Download failed", zap.String("reason", outcome.Reason))
	}

	return outcome, nil
}

func (s *DownloadService) run(ctx context.Context, log *zap.Logger, sessionID, sub string, req model.DownloadRequest) (*DownloadOutcome, error) {
	workPath, err := s.storage.EnsureDownloadDir(sub)
	if err != nil {
		return failure(req.URL, err), nil
	}
	scratch, err := s.storage.ScratchDir(sessionID)
	if err != nil {
		return failure(req.URL, err), nil
	}

	session, err := s.factory.NewSession(s.sessionOptions(sessionID, workPath, scratch, req))
	if err != nil {
		s.releaseScratch(log, sessionID)
		if errors.Is(err, extractor.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %w", ErrExtractorUnavailable, err)
		}
		return failure(req.URL, fmt.Errorf("open extractor session: %w", err)), nil
	}
	s.metrics.SessionOpened()
	defer s.release(log, sessionID, session)

	records, err := s.extract(ctx, session, req.URL)
	if err != nil {
		return failure(req.URL, err), nil
	}
	if len(records) == 0 {
		return failure(req.URL, ErrNoContent), nil
	}

	return &DownloadOutcome{
		Kind:        OutcomeSuccess,
		URL:         req.URL,
		Results:     records,
		CompletedAt: time.Now(),
	}, nil
}

// extract runs the session under the fixed timeout. The call is abandoned
// when the timeout fires or ctx ends; a panic inside the extractor becomes
// an error.
func (s *DownloadService) extract(ctx context.Context, session extractor.Session, url string) ([]extractor.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		records []extractor.Record
		err     error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("extractor panic: %v", r)}
			}
		}()
		records, err := session.Extract(ctx, url, true, nil)
		done <- result{records: records, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() != nil {
			return nil, s.abandoned(ctx)
		}
		return r.records, r.err
	case <-ctx.Done():
		return nil, s.abandoned(ctx)
	}
}

func (s *DownloadService) abandoned(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("extraction timed out after %s", s.timeout)
	}
	return fmt.Errorf("extraction cancelled: %w", ctx.Err())
}

func (s *DownloadService) sessionOptions(sessionID, workPath, scratch string, req model.DownloadRequest) extractor.Options {
	return extractor.Options{
		SessionID:      sessionID,
		WorkPath:       workPath,
		TempPath:       scratch,
		FolderName:     FolderName,
		NameFormat:     NameFormat,
		Cookie:         req.Cookie,
		Proxy:          req.Proxy,
		Quality:        req.Quality,
		Language:       Language,
		Timeout:        SessionTimeout,
		MaxRetry:       SessionMaxRetry,
		RecordData:     true,
		ImageFormat:    ImageFormat,
		ImageDownload:  req.ImageDownload,
		VideoDownload:  req.VideoDownload,
		LiveDownload:   req.LiveDownload,
		FolderMode:     true,
		DownloadRecord: true,
		AuthorArchive:  false,
		WriteMtime:     false,
	}
}

// release closes the session and drops its scratch directory
func (s *DownloadService) release(log *zap.Logger, sessionID string, session extractor.Session) {
	if err := session.Close(); err != nil {
		log.Warn("Failed to close extractor session", zap.Error(err))
	}
	s.metrics.SessionClosed()
	s.releaseScratch(log, sessionID)
}

func (s *DownloadService) releaseScratch(log *zap.Logger, sessionID string) {
	if err := s.storage.ReleaseScratch(sessionID); err != nil {
		log.Warn("Failed to remove scratch directory", zap.Error(err))
	}
}

func failure(url string, err error) *DownloadOutcome {
	return &DownloadOutcome{Kind: OutcomeFailure, URL: url, Reason: err.Error()}
}
