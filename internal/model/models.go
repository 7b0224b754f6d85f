package model

import "encoding/json"

// Service identity reported by the introspection endpoints
const (
	ServiceName    = "Content Downloader API"
	ServiceVersion = "1.0.0"
)

// ClientIdentity is the caller resolved by the auth gate for one request
type ClientIdentity struct {
	ClientID string            `json:"client_id"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DownloadRequest represents a caller's download request
type DownloadRequest struct {
	URL           string `json:"url" binding:"required"`
	SavePath      string `json:"save_path"`
	Quality       string `json:"quality"`
	Cookie        string `json:"cookie"`
	Proxy         string `json:"proxy"`
	ImageDownload bool   `json:"image_download"`
	VideoDownload bool   `json:"video_download"`
	LiveDownload  bool   `json:"live_download"`
}

// NewDownloadRequest returns a request carrying the documented defaults.
// JSON binding on top of it only overrides the fields present in the body.
func NewDownloadRequest() DownloadRequest {
	return DownloadRequest{
		Quality:       "high",
		VideoDownload: true,
	}
}

// DownloadResponse is the body of POST /download
type DownloadResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    *DownloadResultData `json:"data"`
}

// DownloadResultData is attached to a successful DownloadResponse
type DownloadResultData struct {
	URL         string            `json:"url"`
	Status      string            `json:"status"`
	Message     string            `json:"message"`
	ResultCount int               `json:"result_count"`
	Results     []json.RawMessage `json:"results"`
	Timestamp   string            `json:"timestamp"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
