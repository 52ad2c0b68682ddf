// Package classify decides whether a message is a job-application
// confirmation. Heuristics first; an optional AI second opinion is
// consulted only for messages the heuristics find ambiguous.
package classify

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"apptrack/internal/model"
)

// Decision is a classification outcome plus the rule that produced it,
// kept for audit logging.
type Decision struct {
	Positive bool
	Rule     string
}

// Ruleset holds extra classifier inputs, layered on top of the defaults
// below.
type Ruleset struct {
	ATSDomains       []string
	PositiveKeywords []string
	NegativeKeywords []string
}

// defaultATSDomains are sender domains of known applicant tracking
// systems. Matching is by domain suffix, so mail subdomains count.
var defaultATSDomains = []string{
	"greenhouse.io",
	"greenhouse-mail.io",
	"lever.co",
	"hire.lever.co",
	"myworkday.com",
	"myworkdayjobs.com",
	"smartrecruiters.com",
	"icims.com",
	"ashbyhq.com",
	"jobvite.com",
	"successfactors.com",
}

var defaultPositiveKeywords = []string{
	"thank you for applying",
	"thanks for applying",
	"application received",
	"application submitted",
	"we have received your application",
	"we received your application",
	"your application was sent",
	"your application to",
}

// defaultNegativeKeywords override a positive match. Incomplete or
// started-but-not-submitted applications are not confirmations, and
// neither are rejections.
var defaultNegativeKeywords = []string{
	"thanks for starting your application",
	"thank you for starting your application",
	"thanks for starting",
	"complete your application",
	"finish your application",
	"continue your application",
	"resume your application",
	"application incomplete",
	"application is incomplete",
	"application in progress",
	"unfinished application",
	"regret to inform",
	"not be moving forward",
	"not moving forward",
	"moving forward with other candidates",
	"position has been filled",
	"not selected",
}

// SecondOpinion is an optional AI gate for ambiguous messages. It only
// confirms or denies; it never extracts fields.
type SecondOpinion interface {
	IsConfirmation(ctx context.Context, subject, snippet string) (bool, error)
}

// Classifier is a pure decision function over its inputs, aside from the
// optional second-opinion collaborator.
type Classifier struct {
	rules  Ruleset
	second SecondOpinion
}

// New builds a Classifier. The ruleset's lists layer on top of the
// built-ins: configured entries are extras, never replacements, so one
// added keyword cannot silently drop a built-in override. second may be
// nil to disable the AI gate.
func New(rules Ruleset, second SecondOpinion) *Classifier {
	rules.ATSDomains = mergeLists(defaultATSDomains, rules.ATSDomains)
	rules.PositiveKeywords = mergeLists(defaultPositiveKeywords, rules.PositiveKeywords)
	rules.NegativeKeywords = mergeLists(defaultNegativeKeywords, rules.NegativeKeywords)
	return &Classifier{rules: rules, second: second}
}

// mergeLists appends extras onto base, dropping case-insensitive
// duplicates.
func mergeLists(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, lst := range [2][]string{base, extra} {
		for _, v := range lst {
			key := strings.ToLower(strings.TrimSpace(v))
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// Classify runs the rule chain: ATS domain allow-list or positive subject
// keyword makes a message positive; a negative keyword anywhere in
// subject or body then overrides it. Messages with only a weak body
// signal go to the second opinion when one is configured.
func (c *Classifier) Classify(ctx context.Context, msg model.RawMessage) Decision {
	subject := strings.ToLower(msg.Subject)
	body := strings.ToLower(snippet(msg.Body, 2000))

	positive := ""
	if d := c.matchDomain(msg.SenderDomain); d != "" {
		positive = "ats-domain:" + d
	} else if kw := matchAny(subject, c.rules.PositiveKeywords); kw != "" {
		positive = "subject:" + kw
	}

	if positive != "" {
		if kw := matchAny(subject+" "+body, c.rules.NegativeKeywords); kw != "" {
			return Decision{Positive: false, Rule: "negative-override:" + kw}
		}
		return Decision{Positive: true, Rule: positive}
	}

	// Ambiguous: no domain or subject signal, but the body mentions an
	// application. Heuristics alone would skip; ask the second opinion.
	if c.second != nil && matchAny(body, c.rules.PositiveKeywords) != "" {
		if kw := matchAny(subject+" "+body, c.rules.NegativeKeywords); kw != "" {
			return Decision{Positive: false, Rule: "negative-override:" + kw}
		}
		ok, err := c.second.IsConfirmation(ctx, msg.Subject, snippet(msg.Body, 1500))
		if err != nil {
			// Conservative skip; the message stays eligible next run.
			zap.L().Warn("classify: second opinion unavailable",
				zap.String("email_id", msg.ID),
				zap.Error(err),
			)
			return Decision{Positive: false, Rule: "second-opinion-error"}
		}
		if ok {
			return Decision{Positive: true, Rule: "second-opinion"}
		}
		return Decision{Positive: false, Rule: "second-opinion-negative"}
	}

	return Decision{Positive: false, Rule: "no-match"}
}

func (c *Classifier) matchDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return ""
	}
	for _, d := range c.rules.ATSDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return d
		}
	}
	return ""
}

func matchAny(text string, keywords []string) string {
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return kw
		}
	}
	return ""
}

// snippet bounds s to max bytes, backing off to a rune boundary so a
// multi-byte character is never split.
func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
