package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

const opinionSystemPrompt = `You decide whether an email confirms that a job application was fully submitted. Answer with exactly one word: yes or no. Emails about starting, continuing, or completing an application are "no". Rejections, newsletters, and job recommendations are "no".`

const opinionUserPrompt = `Subject: %SUBJECT%

Body:
%BODY%`

// Opinion is the AI second-opinion gate used for heuristic-ambiguous
// messages. It answers yes/no only; field extraction stays elsewhere.
type Opinion struct {
	client Client
}

func NewOpinion(client Client) *Opinion {
	return &Opinion{client: client}
}

func (o *Opinion) IsConfirmation(ctx context.Context, subject, snippet string) (bool, error) {
	prompt := strings.NewReplacer(
		"%SUBJECT%", subject,
		"%BODY%", snippet,
	).Replace(opinionUserPrompt)

	resp, err := o.client.Complete(ctx, Request{
		System:    opinionSystemPrompt,
		Prompt:    prompt,
		MaxTokens: 8,
	})
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(resp.Text)) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, eris.Errorf("llm: unexpected second-opinion answer %q", resp.Text)
	}
}
