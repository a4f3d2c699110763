package app

import (
	"net/url"
	"strings"
)

// DefaultShareBaseURL prefixes share links when none is configured.
const DefaultShareBaseURL = "http://localhost:8080/share"

const shareLinkParam = "meetingId"

// BuildShareLink returns the shareable link for a meeting id.
func BuildShareLink(baseURL, meetingID string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultShareBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + "?" + shareLinkParam + "=" + url.QueryEscape(meetingID)
	}
	query := u.Query()
	query.Set(shareLinkParam, meetingID)
	u.RawQuery = query.Encode()
	return u.String()
}

// ParseShareLink extracts the meeting id from a share link or a bare id.
func ParseShareLink(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", ErrInvalidShareLink
	}
	if !strings.Contains(link, "?") && !strings.Contains(link, "/") {
		return link, nil
	}
	u, err := url.Parse(link)
	if err != nil {
		return "", ErrInvalidShareLink
	}
	id := strings.TrimSpace(u.Query().Get(shareLinkParam))
	if id == "" {
		return "", ErrInvalidShareLink
	}
	return id, nil
}
