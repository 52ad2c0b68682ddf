package extract

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"apptrack/internal/config"
)

// Template is a deterministic field extractor for one ATS's confirmation
// emails. Patterns run against the subject first, then the normalized
// body text; the first capture group of the first match wins.
type Template struct {
	Name     string
	company  []*regexp.Regexp
	position []*regexp.Regexp
}

// Apply returns the extracted fields, empty where nothing matched.
// Same input text always yields the same output.
func (t *Template) Apply(subject, text string) (company, position string) {
	company = firstMatch(t.company, subject, text)
	position = firstMatch(t.position, subject, text)
	return company, position
}

func firstMatch(patterns []*regexp.Regexp, subject, text string) string {
	for _, re := range patterns {
		for _, s := range [2]string{subject, text} {
			if m := re.FindStringSubmatch(s); len(m) > 1 {
				return strings.TrimSpace(m[1])
			}
		}
	}
	return ""
}

// Registry maps sender domains to templates. Lookup is by suffix so
// mail subdomains (e.g. us.greenhouse-mail.io) hit their ATS template.
type Registry struct {
	byDomain map[string]*Template
}

// NewRegistry builds the built-in ATS templates plus any rules-file
// additions. A rules template for an already-registered domain replaces
// the built-in.
func NewRegistry(extra []config.TemplateRule) (*Registry, error) {
	r := &Registry{byDomain: map[string]*Template{}}

	for domain, t := range builtinTemplates() {
		r.byDomain[domain] = t
	}

	for _, rule := range extra {
		t, err := compileRule(rule)
		if err != nil {
			return nil, err
		}
		r.byDomain[strings.ToLower(rule.Domain)] = t
	}

	return r, nil
}

// Lookup finds the template for a sender domain, if one is registered.
func (r *Registry) Lookup(domain string) (*Template, bool) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	for domain != "" {
		if t, ok := r.byDomain[domain]; ok {
			return t, true
		}
		idx := strings.Index(domain, ".")
		if idx < 0 {
			break
		}
		domain = domain[idx+1:]
	}
	return nil, false
}

func compileRule(rule config.TemplateRule) (*Template, error) {
	t := &Template{Name: rule.Name}
	if t.Name == "" {
		t.Name = rule.Domain
	}
	for _, p := range rule.Company {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, eris.Wrapf(err, "extract: template %s company pattern", t.Name)
		}
		t.company = append(t.company, re)
	}
	for _, p := range rule.Position {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, eris.Wrapf(err, "extract: template %s position pattern", t.Name)
		}
		t.position = append(t.position, re)
	}
	return t, nil
}

// Confirmation phrasing per ATS, collected from real notification mail.
// Company names can carry spaces, digits and punctuation, so captures are
// lazy and cut at the delimiter that phrasing guarantees.
func builtinTemplates() map[string]*Template {
	return map[string]*Template{
		"greenhouse.io": {
			Name: "greenhouse",
			company: compileAll(
				`(?i)thank you for applying to\s+([^–—!.,]+?)\s*(?:[–—]|\s-\s|[!.,]|$)`,
				`(?i)your application to\s+([^–—!.,]+?)\s*(?:[–—]|[!.,]|$)`,
			),
			position: compileAll(
				`(?i)thank you for applying to\s+[^–—]+?\s*(?:[–—]|\s-\s)\s*(.+?)\s*$`,
				`(?i)for the\s+(.+?)\s+(?:role|position|opening)\b`,
			),
		},
		"greenhouse-mail.io": {
			Name: "greenhouse",
			company: compileAll(
				`(?i)thank you for applying to\s+([^–—!.,]+?)\s*(?:[–—]|\s-\s|[!.,]|$)`,
				`(?i)your application to\s+([^–—!.,]+?)\s*(?:[–—]|[!.,]|$)`,
			),
			position: compileAll(
				`(?i)thank you for applying to\s+[^–—]+?\s*(?:[–—]|\s-\s)\s*(.+?)\s*$`,
				`(?i)for the\s+(.+?)\s+(?:role|position|opening)\b`,
			),
		},
		"lever.co": {
			Name: "lever",
			company: compileAll(
				`(?i)thank you for your interest in\s+([^!.,]+?)\s*[!.,]`,
				`(?i)your application (?:to|at|with)\s+([^!.,]+?)\s*(?:[!.,]|$)`,
			),
			position: compileAll(
				`(?i)applying (?:to|for) the\s+(.+?)\s+(?:role|position|opening)\b`,
				`(?i)the\s+(.+?)\s+(?:role|position|opening)\s+at\b`,
			),
		},
		"myworkday.com": workdayTemplate(),
		"myworkdayjobs.com": workdayTemplate(),
		"smartrecruiters.com": {
			Name: "smartrecruiters",
			company: compileAll(
				`(?i)thank you for applying (?:to|at)\s+([^!.,]+?)\s*(?:[!.,]|$)`,
				`(?i)your application at\s+([^!.,]+?)\s*(?:[!.,]|$)`,
			),
			position: compileAll(
				`(?i)application for (?:the\s+)?(.+?)\s+(?:role|position|opening)\b`,
				`(?i)application for\s+(.+?)\s+at\b`,
			),
		},
		"icims.com": {
			Name: "icims",
			company: compileAll(
				`(?i)position at\s+([^!.,]+?)\s*(?:[!.,]|$)`,
				`(?i)thank you for your interest in\s+([^!.,]+?)\s*[!.,]`,
			),
			position: compileAll(
				`(?i)interest in the\s+(.+?)\s+position\b`,
				`(?i)applied (?:to|for) the\s+(.+?)\s+(?:role|position)\b`,
			),
		},
		"ashbyhq.com": {
			Name: "ashby",
			company: compileAll(
				`(?i)thank you for applying to\s+([^–—!.,]+?)\s*(?:[–—]|[!.,]|$)`,
				`(?i)application to\s+([^–—!.,]+?)\s*(?:[–—]|[!.,]|$)`,
			),
			position: compileAll(
				`(?i)for the\s+(.+?)\s+(?:role|position|opening)\b`,
				`(?i)applying to\s+[^–—]+?\s*[–—]\s*(.+?)\s*$`,
			),
		},
	}
}

func workdayTemplate() *Template {
	return &Template{
		Name: "workday",
		company: compileAll(
			`(?i)your application\s+(?:for\s+.+?\s+)?at\s+([^!.,]+?)\s*(?:[!.,]|$)`,
			`(?i)thank you for applying to\s+([^!.,]+?)\s*(?:[!.,]|$)`,
		),
		position: compileAll(
			`(?i)received your application for\s+(?:the\s+)?(.+?)\s+at\b`,
			`(?i)application for\s+(?:the\s+)?(.+?)\s+(?:role|position|requisition)\b`,
		),
	}
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}
