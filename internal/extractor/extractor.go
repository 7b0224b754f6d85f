// Package extractor defines the contract between the gateway and the
// content extraction backend, plus its implementations.
//
// A Factory is resolved once at boot. Each download opens one Session,
// runs Extract on it and closes it on every exit path.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnavailable is returned by a Factory whose backend could not be set up
	ErrUnavailable = errors.New("extractor unavailable")
	// ErrSessionClosed is returned by Extract after Close
	ErrSessionClosed = errors.New("extractor session closed")
)

// Record is one extracted item. The gateway passes it through untouched.
type Record = json.RawMessage

// Options are the construction parameters of one session
type Options struct {
	SessionID  string
	WorkPath   string // directory receiving downloaded artifacts
	TempPath   string // per-session scratch directory
	FolderName string
	NameFormat string
	Cookie     string
	Proxy      string
	Quality    string
	Language   string

	Timeout  time.Duration // per upstream request
	MaxRetry int           // retries after the first attempt

	RecordData     bool
	ImageFormat    string
	ImageDownload  bool
	VideoDownload  bool
	LiveDownload   bool
	FolderMode     bool
	DownloadRecord bool
	AuthorArchive  bool
	WriteMtime     bool
}

// Session owns one backend handle for the duration of a single download
type Session interface {
	// Extract fetches every item reachable from url. A nil index means all items.
	Extract(ctx context.Context, url string, download bool, index []int) ([]Record, error)
	// Close releases the handle. It is safe to call more than once.
	Close() error
}

// Factory opens sessions
type Factory interface {
	NewSession(opts Options) (Session, error)
	// Available returns nil when sessions can be opened
	Available() error
}

// Unavailable is the Factory used when the backend could not be constructed.
// It never opens a session.
type Unavailable struct {
	Reason error
}

// NewSession always fails with ErrUnavailable
func (u Unavailable) NewSession(Options) (Session, error) {
	return nil, u.Available()
}

// Available reports why the backend is missing
func (u Unavailable) Available() error {
	if u.Reason == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, u.Reason)
}
