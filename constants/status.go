package constants

import "strings"

// Status is the workflow state of a persisted invoice.
type Status string

// Stable values (these exact strings are persisted).
const (
	StatusDraft       Status = "Draft"
	StatusOpen        Status = "Open"
	StatusAccepted    Status = "Accepted"
	StatusNotAccepted Status = "Not Accepted"
	StatusCompleted   Status = "Completed" // entered only by marking paid
)

var allStatuses = []Status{
	StatusDraft,
	StatusOpen,
	StatusAccepted,
	StatusNotAccepted,
	StatusCompleted,
}

// Statuses returns every status as its persisted string.
func Statuses() []string {
	result := make([]string, len(allStatuses))
	for i, s := range allStatuses {
		result[i] = string(s)
	}
	return result
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }

// ParseStatus maps user input onto a Status. Matching ignores case, spaces,
// dashes and underscores, so "not_accepted" and "NotAccepted" both resolve.
func ParseStatus(input string) (Status, bool) {
	normalized := squash(input)
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]Status{
		"sent":     StatusOpen,
		"rejected": StatusNotAccepted,
		"declined": StatusNotAccepted,
		"complete": StatusCompleted,
		"done":     StatusCompleted,
	}
	if s, ok := synonyms[normalized]; ok {
		return s, true
	}

	for _, s := range allStatuses {
		if normalized == squash(string(s)) {
			return s, true
		}
	}
	return "", false
}

func squash(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

// Intent is the action that triggered a save. It decides the entry status.
type Intent string

const (
	IntentSave  Intent = "save"  // bare save
	IntentEmail Intent = "email" // send to client
	IntentSign  Intent = "sign"  // sign and save
)

// InitialStatus returns the status a freshly created invoice gets for the intent.
func (i Intent) InitialStatus() (Status, bool) {
	switch Intent(strings.ToLower(strings.TrimSpace(string(i)))) {
	case IntentSave, "":
		return StatusDraft, true
	case IntentEmail:
		return StatusOpen, true
	case IntentSign:
		return StatusAccepted, true
	}
	return "", false
}
