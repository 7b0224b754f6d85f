package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"downloadgateway/internal/model"
	"downloadgateway/pkg/logger"

	"go.uber.org/zap"
)

const (
	extractPath   = "/extract"
	retryBackoff  = 500 * time.Millisecond
	maxErrorBytes = 4096
)

// New builds the factory described by cfg. A missing or invalid worker URL
// yields an Unavailable factory instead of an error.
func New(cfg model.ExtractorConfig) Factory {
	f, err := NewHTTPFactory(cfg.URL)
	if err != nil {
		return Unavailable{Reason: err}
	}
	return f
}

// HTTPFactory opens sessions against an extraction worker speaking JSON over HTTP
type HTTPFactory struct {
	baseURL string
	backoff time.Duration
}

// NewHTTPFactory validates the worker URL
func NewHTTPFactory(baseURL string) (*HTTPFactory, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("extractor URL is not configured")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid extractor URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid extractor URL %q", baseURL)
	}
	return &HTTPFactory{
		baseURL: strings.TrimRight(baseURL, "/"),
		backoff: retryBackoff,
	}, nil
}

// Available always succeeds; reachability is checked per request
func (f *HTTPFactory) Available() error { return nil }

// NewSession opens a session with its own transport
func (f *HTTPFactory) NewSession(opts Options) (Session, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	ctx, cancel := context.WithCancel(context.Background())

	return &httpSession{
		endpoint:  f.baseURL + extractPath,
		opts:      opts,
		backoff:   f.backoff,
		transport: transport,
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

type httpSession struct {
	endpoint  string
	opts      Options
	backoff   time.Duration
	transport *http.Transport
	client    *http.Client

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

type extractRequest struct {
	URL            string `json:"url"`
	Download       bool   `json:"download"`
	Index          []int  `json:"index"`
	WorkPath       string `json:"work_path"`
	TempPath       string `json:"temp_path,omitempty"`
	FolderName     string `json:"folder_name"`
	NameFormat     string `json:"name_format"`
	Cookie         string `json:"cookie,omitempty"`
	Proxy          string `json:"proxy,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Timeout        int    `json:"timeout"`
	MaxRetry       int    `json:"max_retry"`
	RecordData     bool   `json:"record_data"`
	ImageFormat    string `json:"image_format"`
	ImageDownload  bool   `json:"image_download"`
	VideoDownload  bool   `json:"video_download"`
	LiveDownload   bool   `json:"live_download"`
	FolderMode     bool   `json:"folder_mode"`
	DownloadRecord bool   `json:"download_record"`
	AuthorArchive  bool   `json:"author_archive"`
	WriteMtime     bool   `json:"write_mtime"`
	Language       string `json:"language,omitempty"`
}

type extractResponse struct {
	Results []Record `json:"results"`
}

type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// statusError is a non-2xx answer from the worker
type statusError struct {
	Code    int
	Message string
}

func (e *statusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("extractor returned status %d", e.Code)
	}
	return fmt.Sprintf("extractor returned status %d: %s", e.Code, e.Message)
}

// Extract posts the request to the worker, retrying transport errors and
// 5xx answers up to MaxRetry times.
func (s *httpSession) Extract(ctx context.Context, target string, download bool, index []int) ([]Record, error) {
	if s.ctx.Err() != nil {
		return nil, ErrSessionClosed
	}

	// Close aborts the in-flight call
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	body, err := json.Marshal(s.buildRequest(target, download, index))
	if err != nil {
		return nil, fmt.Errorf("encode extract request: %w", err)
	}

	attempts := 1 + max(s.opts.MaxRetry, 0)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, s.ctxErr(ctx, lastErr)
			case <-time.After(time.Duration(attempt-1) * s.backoff):
			}
		}

		records, err := s.post(ctx, body)
		if err == nil {
			return records, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, s.ctxErr(ctx, lastErr)
		}
		if !retryable(err) {
			return nil, err
		}
		logger.Logger.Warn("Extraction attempt failed",
			zap.String("session_id", s.opts.SessionID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err))
	}

	return nil, fmt.Errorf("extraction failed after %d attempts: %w", attempts, lastErr)
}

func (s *httpSession) ctxErr(ctx context.Context, lastErr error) error {
	if s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	if lastErr != nil && !errors.Is(lastErr, context.Canceled) && !errors.Is(lastErr, context.DeadlineExceeded) {
		return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
	}
	return ctx.Err()
}

func (s *httpSession) post(ctx context.Context, body []byte) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build extractor request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.opts.SessionID != "" {
		req.Header.Set("X-Session-ID", s.opts.SessionID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call extractor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readStatusError(resp)
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode extractor response: %w", err)
	}
	return out.Results, nil
}

func readStatusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))

	msg := strings.TrimSpace(string(raw))
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil {
		switch {
		case eb.Message != "":
			msg = eb.Message
		case eb.Detail != "":
			msg = eb.Detail
		}
	}
	return &statusError{Code: resp.StatusCode, Message: msg}
}

// retryable accepts 5xx answers and transport failures. A 2xx body that
// does not decode is permanent.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	var ue *url.Error
	return errors.As(err, &ue) && !errors.Is(err, context.Canceled)
}

func (s *httpSession) buildRequest(target string, download bool, index []int) extractRequest {
	o := s.opts
	return extractRequest{
		URL:            target,
		Download:       download,
		Index:          index,
		WorkPath:       o.WorkPath,
		TempPath:       o.TempPath,
		FolderName:     o.FolderName,
		NameFormat:     o.NameFormat,
		Cookie:         o.Cookie,
		Proxy:          o.Proxy,
		Quality:        o.Quality,
		Timeout:        int(o.Timeout / time.Second),
		MaxRetry:       o.MaxRetry,
		RecordData:     o.RecordData,
		ImageFormat:    o.ImageFormat,
		ImageDownload:  o.ImageDownload,
		VideoDownload:  o.VideoDownload,
		LiveDownload:   o.LiveDownload,
		FolderMode:     o.FolderMode,
		DownloadRecord: o.DownloadRecord,
		AuthorArchive:  o.AuthorArchive,
		WriteMtime:     o.WriteMtime,
		Language:       o.Language,
	}
}

// Close aborts any in-flight call and drops pooled connections
func (s *httpSession) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.transport.CloseIdleConnections()
	})
	return nil
}
