package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var ticketRegex = regexp.MustCompile(`^([A-Za-z]+)-(\d+)$`)

// NormalizeAssignmentID trims an assignment id and uppercases it when it
// looks like a ticket key:
// - "app-123" -> "APP-123"
// - "site/north" stays as is
// Ids with whitespace or control characters are rejected.
func NormalizeAssignmentID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("assignment id is required")
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", fmt.Errorf("assignment id %q must not contain spaces", id)
		}
	}
	if IsTicketID(id) {
		return strings.ToUpper(id), nil
	}
	return id, nil
}

// IsTicketID reports whether id has the KEY-123 shape.
func IsTicketID(id string) bool {
	return ticketRegex.MatchString(strings.TrimSpace(id))
}
