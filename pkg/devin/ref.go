package devin

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// SessionPrefix starts every session id.
const SessionPrefix = "devin-"

var sessionURLPattern = regexp.MustCompile(`sessions/([a-f0-9\-]+)`)

// ParseSessionRef accepts a session id with or without its prefix, or a
// session web URL, and returns the canonical session id.
func ParseSessionRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSessionRef)
	}
	if strings.HasPrefix(ref, "http") {
		m := sessionURLPattern.FindStringSubmatch(ref)
		if m == nil {
			return "", fmt.Errorf("%w: %s", ErrInvalidSessionRef, ref)
		}
		return SessionPrefix + strings.TrimPrefix(m[1], SessionPrefix), nil
	}
	if !strings.HasPrefix(ref, SessionPrefix) {
		ref = SessionPrefix + ref
	}
	return ref, nil
}

// WebURL is the browser address of a session.
func WebURL(appURL, sessionID string) string {
	return strings.TrimRight(appURL, "/") + "/sessions/" + strings.TrimPrefix(sessionID, SessionPrefix)
}

// AttachmentRef identifies a file a session uploaded.
type AttachmentRef struct {
	UUID     string
	Filename string
}

// path is the API path of the attachment, each segment escaped.
func (r AttachmentRef) path() string {
	return "/attachments/" + url.PathEscape(r.UUID) + "/" + url.PathEscape(r.Filename)
}

func (r AttachmentRef) String() string {
	return r.UUID + "/" + r.Filename
}

// AttachmentMatcher finds attachment links inside message text. Links have
// the form <app-url>/attachments/<uuid>/<filename>.
type AttachmentMatcher struct {
	re *regexp.Regexp
}

// NewAttachmentMatcher builds a matcher for links under appURL.
func NewAttachmentMatcher(appURL string) *AttachmentMatcher {
	base := regexp.QuoteMeta(strings.TrimRight(appURL, "/"))
	return &AttachmentMatcher{
		re: regexp.MustCompile(base + `/attachments/([a-f0-9\-]+)/([^"'\s<>()\[\]]+)`),
	}
}

// Find returns the first attachment link in text.
func (m *AttachmentMatcher) Find(text string) (AttachmentRef, bool) {
	match := m.re.FindStringSubmatch(text)
	if match == nil {
		return AttachmentRef{}, false
	}
	filename := strings.TrimRight(match[2], ".,;:!?")
	// Links carry the filename percent-encoded; path() encodes it again.
	if decoded, err := url.PathUnescape(filename); err == nil {
		filename = decoded
	}
	return AttachmentRef{UUID: match[1], Filename: filename}, true
}
