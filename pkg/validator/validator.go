package validator

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Validation errors returned to callers as client input errors
var (
	ErrEmptyURL        = errors.New("url is required")
	ErrMalformedURL    = errors.New("url is malformed")
	ErrUnsupportedURL  = errors.New("url scheme must be http or https")
	ErrDomainForbidden = errors.New("url domain is not allowed")
	ErrInvalidSavePath = errors.New("save_path must be a relative path inside the download directory")
)

// maxSegmentLen caps each save_path segment, in runes
const maxSegmentLen = 64

// ValidateURL checks that rawURL is an absolute http(s) URL whose host is
// within allowedDomains. An empty allowedDomains list accepts any host.
func ValidateURL(rawURL string, allowedDomains []string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ErrEmptyURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrUnsupportedURL
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrMalformedURL)
	}

	if len(allowedDomains) == 0 {
		return nil
	}

	// Normalize host to lowercase for comparison
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	for _, domain := range allowedDomains {
		cleanDomain := strings.ToLower(strings.TrimSpace(domain))
		if len(cleanDomain) == 0 {
			continue
		}
		if host == cleanDomain || strings.HasSuffix(host, "."+cleanDomain) {
			return nil
		}
	}

	return ErrDomainForbidden
}

// CleanSavePath validates a caller supplied sub directory and returns it in
// slash form with every segment sanitized. "" stays "".
func CleanSavePath(savePath string) (string, error) {
	savePath = strings.TrimSpace(strings.ReplaceAll(savePath, "\\", "/"))
	if savePath == "" {
		return "", nil
	}
	if strings.HasPrefix(savePath, "/") {
		return "", ErrInvalidSavePath
	}

	var segments []string
	for _, seg := range strings.Split(savePath, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return "", ErrInvalidSavePath
		}
		segments = append(segments, TruncateFilename(SanitizeFilename(seg), maxSegmentLen))
	}
	if len(segments) == 0 {
		return "", nil
	}

	return path.Join(segments...), nil
}

// SanitizeFilename removes dangerous characters from filename
func SanitizeFilename(filename string) string {
	dangerousChars := []string{"<", ">", ":", "\"", "/", "\\", "|", "?", "*", "\x00"}
	result := filename
	for _, char := range dangerousChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	return result
}

// TruncateFilename truncates filename to max length while preserving extension
// Uses rune-level truncation to properly handle UTF-8 multi-byte characters
func TruncateFilename(filename string, maxLen int) string {
	runes := []rune(filename)

	if len(runes) <= maxLen {
		return filename
	}

	lastDot := strings.LastIndex(filename, ".")
	if lastDot == -1 {
		return string(runes[:maxLen])
	}

	ext := filename[lastDot:]
	extRunes := []rune(ext)

	availableLen := maxLen - len(extRunes)
	if availableLen <= 0 {
		return string(runes[:maxLen])
	}

	baseName := string(runes[:availableLen])
	return baseName + ext
}
