package extract

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"apptrack/internal/llm"
	"apptrack/internal/model"
	"apptrack/internal/resilience"
)

const aiSystemPrompt = `You extract job application details from confirmation emails. Respond with only a valid JSON object, no markdown fences, matching:
{"company": "<company name>", "position": "<job title or the literal string unknown>", "confidence": <0.0-1.0>}
Rules:
- company is the employer actually applied to, never a job board or ATS (not "LinkedIn", "Indeed", "Greenhouse").
- position must be the literal string "unknown" when the email does not name one. Never omit it, never use null.
- If the email is not a submitted-application confirmation, use null for company.`

const aiUserPrompt = `Subject: %SUBJECT%
From: %SENDER%

Email body:
%BODY%`

// aiMaxBodyChars bounds prompt size for long HTML-heavy bodies.
const aiMaxBodyChars = 3000

// errMalformed marks structured output that failed validation; it is
// retried a bounded number of times before becoming a skip.
var errMalformed = eris.New("extract: malformed model output")

// AIFields is the fallback extractor's validated output. HasConfidence
// distinguishes a reported confidence of 0.0 from an absent field; the
// default confidence applies only to the latter.
type AIFields struct {
	Company       string
	Position      string
	Confidence    float64
	HasConfidence bool
}

// AIExtractor asks the model for fields the template path could not
// resolve.
type AIExtractor struct {
	client llm.Client
	retry  resilience.RetryConfig
}

func NewAIExtractor(client llm.Client) *AIExtractor {
	cfg := resilience.DefaultRetryConfig()
	cfg.ShouldRetry = func(err error) bool {
		return resilience.IsTransient(err) || eris.Is(err, errMalformed)
	}
	return &AIExtractor{client: client, retry: cfg}
}

// Fields runs the structured-extraction prompt with retries. The error
// distinguishes nothing-to-extract (ErrNoExtraction) from transport or
// output failures, which the caller downgrades to a per-message skip.
func (a *AIExtractor) Fields(ctx context.Context, msg model.RawMessage, text string) (AIFields, error) {
	text = truncateAtRune(text, aiMaxBodyChars)
	prompt := strings.NewReplacer(
		"%SUBJECT%", msg.Subject,
		"%SENDER%", msg.Sender,
		"%BODY%", text,
	).Replace(aiUserPrompt)

	return resilience.DoVal(ctx, a.retry, "ai-extract", func(ctx context.Context) (AIFields, error) {
		resp, err := a.client.Complete(ctx, llm.Request{
			System:    aiSystemPrompt,
			Prompt:    prompt,
			MaxTokens: 200,
		})
		if err != nil {
			return AIFields{}, err
		}
		return parseAIFields(resp.Text)
	})
}

type aiPayload struct {
	Company    *string  `json:"company"`
	Position   *string  `json:"position"`
	Confidence *float64 `json:"confidence"`
}

func parseAIFields(raw string) (AIFields, error) {
	raw = stripFences(raw)

	var p aiPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return AIFields{}, eris.Wrap(errMalformed, err.Error())
	}

	// Null company is the model's "not a confirmation" signal.
	if p.Company == nil || strings.TrimSpace(*p.Company) == "" {
		return AIFields{}, ErrNoExtraction
	}

	out := AIFields{Company: strings.TrimSpace(*p.Company)}

	out.Position = model.PositionUnknown
	if p.Position != nil {
		if pos := strings.TrimSpace(*p.Position); pos != "" {
			out.Position = pos
		}
	}

	if p.Confidence != nil && *p.Confidence >= 0 && *p.Confidence <= 1 {
		out.Confidence = *p.Confidence
		out.HasConfidence = true
	}

	return out, nil
}

// truncateAtRune cuts s to at most max bytes without splitting a rune.
func truncateAtRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
