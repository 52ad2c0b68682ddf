// Package extract turns classified messages into candidate records:
// deterministic ATS templates first, AI fallback second.
package extract

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"apptrack/internal/model"
)

// ErrNoExtraction means the message yielded no usable company field on
// any path. The message is skipped, not retried within the run.
var ErrNoExtraction = eris.New("extract: no fields resolved")

// Extractor resolves company, position, and date for one message.
type Extractor struct {
	templates         *Registry
	ai                *AIExtractor // nil disables the fallback
	defaultConfidence float64
}

// New builds an Extractor. defaultConfidence is used for AI results
// whose payload carried no usable confidence.
func New(templates *Registry, ai *AIExtractor, defaultConfidence float64) *Extractor {
	if defaultConfidence <= 0 || defaultConfidence > 1 {
		defaultConfidence = 0.6
	}
	return &Extractor{templates: templates, ai: ai, defaultConfidence: defaultConfidence}
}

// Extract produces a Candidate or an extraction failure. The date always
// comes from the received timestamp, never from body text.
func (e *Extractor) Extract(ctx context.Context, msg model.RawMessage) (model.Candidate, error) {
	text := HTMLToText(msg.Body)

	cand := model.Candidate{
		DateApplied:   msg.ReceivedAt.Format(model.DateLayout),
		SourceEmailID: msg.ID,
		SourceDomain:  msg.SenderDomain,
	}

	var tmplCompany string
	if t, ok := e.templates.Lookup(msg.SenderDomain); ok {
		company, position := t.Apply(msg.Subject, text)
		tmplCompany = company
		if company != "" && position != "" {
			cand.Company = company
			cand.Position = position
			cand.Confidence = 1.0
			cand.Method = model.MethodTemplate
			zap.L().Debug("extract: template hit",
				zap.String("email_id", msg.ID),
				zap.String("template", t.Name),
				zap.String("company", company),
			)
			return cand, nil
		}
		zap.L().Debug("extract: template incomplete, falling back",
			zap.String("email_id", msg.ID),
			zap.String("template", t.Name),
			zap.Bool("company", company != ""),
			zap.Bool("position", position != ""),
		)
	}

	if e.ai == nil {
		// No fallback: a company-only template hit still counts, with the
		// position left as the sentinel.
		if tmplCompany != "" {
			cand.Company = tmplCompany
			cand.Position = model.PositionUnknown
			cand.Confidence = 1.0
			cand.Method = model.MethodTemplate
			return cand, nil
		}
		return model.Candidate{}, ErrNoExtraction
	}

	fields, err := e.ai.Fields(ctx, msg, text)
	if err != nil {
		if eris.Is(err, ErrNoExtraction) {
			return model.Candidate{}, ErrNoExtraction
		}
		return model.Candidate{}, eris.Wrapf(err, "extract: ai fallback for %s", msg.ID)
	}

	cand.Company = fields.Company
	cand.Position = fields.Position
	// A reported 0.0 is the model's judgment and must reach the gate as
	// is; the default only covers payloads with no confidence at all.
	cand.Confidence = e.defaultConfidence
	if fields.HasConfidence {
		cand.Confidence = fields.Confidence
	}
	cand.Method = model.MethodAI
	return cand, nil
}
