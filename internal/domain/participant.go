package domain

import (
	"regexp"
	"strings"
)

// DefaultEmailDomain is appended to derived participant addresses.
const DefaultEmailDomain = "company.com"

var whitespaceRun = regexp.MustCompile(`\s+`)

// Participant is one attendee fixed at meeting creation.
type Participant struct {
	ID    string
	Name  string
	Email string
}

// DeriveEmail builds the address for a participant name.
func DeriveEmail(name, domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		domain = DefaultEmailDomain
	}
	local := whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), ".")
	return local + "@" + domain
}

// SplitParticipantNames expands comma-separated entries and drops blanks.
func SplitParticipantNames(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			out = append(out, name)
		}
	}
	return out
}
