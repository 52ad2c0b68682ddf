package model

import (
	"strings"
	"time"
)

// ExtractionMethod records which path produced a candidate.
type ExtractionMethod string

const (
	MethodTemplate ExtractionMethod = "template"
	MethodAI       ExtractionMethod = "ai-fallback"
)

// PositionUnknown is the sentinel for "no position found in the message".
// It is a real value, never an empty string, so downstream consumers
// don't branch on presence.
const PositionUnknown = "unknown"

// DateLayout is the canonical calendar-date format used everywhere:
// sheet rows, ledger entries, fuzzy dedup comparisons.
const DateLayout = "2006-01-02"

// RawMessage is what the mail collaborator hands the pipeline.
type RawMessage struct {
	ID           string // opaque, stable across fetches of the same message
	Sender       string // full From header value
	SenderDomain string
	Subject      string
	Body         string // HTML or plain text, as received
	ReceivedAt   time.Time
}

// Candidate is a parsed job application. It lives from extraction until
// the gate and ledger decide its fate; it is never persisted itself.
type Candidate struct {
	Company       string
	Position      string
	DateApplied   string // DateLayout
	SourceEmailID string
	SourceDomain  string
	Confidence    float64
	Method        ExtractionMethod
}

// Row converts to sheet row order: Position, Company, Date Applied.
func (c Candidate) Row() []string {
	return []string{c.Position, c.Company, c.DateApplied}
}

// NormalizeKeyPart canonicalizes a composite-key component:
// lower-cased, whitespace collapsed to single spaces, trimmed.
func NormalizeKeyPart(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(strings.TrimSpace(s))
}
