package classify

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"apptrack/internal/model"
)

func TestClassify_ATSDomain(t *testing.T) {
	c := New(Ruleset{}, nil)

	dec := c.Classify(context.Background(), model.RawMessage{
		SenderDomain: "us.greenhouse-mail.io",
		Subject:      "Your recent submission",
	})

	assert.True(t, dec.Positive)
	assert.Equal(t, "ats-domain:greenhouse-mail.io", dec.Rule)
}

func TestClassify_SubjectKeyword(t *testing.T) {
	c := New(Ruleset{}, nil)

	dec := c.Classify(context.Background(), model.RawMessage{
		SenderDomain: "careers.example.com",
		Subject:      "Thank you for applying to Stripe!",
	})

	assert.True(t, dec.Positive)
	assert.Equal(t, "subject:thank you for applying", dec.Rule)
}

func TestClassify_NegativeOverridesDomain(t *testing.T) {
	c := New(Ruleset{}, nil)

	dec := c.Classify(context.Background(), model.RawMessage{
		SenderDomain: "lever.co",
		Subject:      "Thanks for starting your application",
	})

	assert.False(t, dec.Positive)
	assert.Equal(t, "negative-override:thanks for starting your application", dec.Rule)
}

func TestClassify_RejectionInBodyOverrides(t *testing.T) {
	c := New(Ruleset{}, nil)

	dec := c.Classify(context.Background(), model.RawMessage{
		SenderDomain: "myworkday.com",
		Subject:      "Update on your application",
		Body:         "We regret to inform you that we will not be moving forward.",
	})

	assert.False(t, dec.Positive)
}

func TestClassify_NoMatch(t *testing.T) {
	c := New(Ruleset{}, nil)

	dec := c.Classify(context.Background(), model.RawMessage{
		SenderDomain: "newsletter.example.com",
		Subject:      "This week in tech",
		Body:         "Top stories of the week.",
	})

	assert.False(t, dec.Positive)
	assert.Equal(t, "no-match", dec.Rule)
}

type fakeOpinion struct {
	answer bool
	err    error
	called bool
}

func (f *fakeOpinion) IsConfirmation(ctx context.Context, subject, snippet string) (bool, error) {
	f.called = true
	return f.answer, f.err
}

func TestClassify_SecondOpinionConfirms(t *testing.T) {
	op := &fakeOpinion{answer: true}
	c := New(Ruleset{}, op)

	dec := c.Classify(context.Background(), model.RawMessage{
		SenderDomain: "mail.somecorp.com",
		Subject:      "Somecorp careers",
		Body:         "We have received your application and will review it shortly.",
	})

	assert.True(t, op.called)
	assert.True(t, dec.Positive)
	assert.Equal(t, "second-opinion", dec.Rule)
}

func TestClassify_SecondOpinionDenies(t *testing.T) {
	op := &fakeOpinion{answer: false}
	c := New(Ruleset{}, op)

	dec := c.Classify(context.Background(), model.RawMessage{
		SenderDomain: "mail.somecorp.com",
		Subject:      "Somecorp careers",
		Body:         "We have received your application and will review it shortly.",
	})

	assert.True(t, op.called)
	assert.False(t, dec.Positive)
	assert.Equal(t, "second-opinion-negative", dec.Rule)
}

func TestClassify_SecondOpinionError(t *testing.T) {
	op := &fakeOpinion{err: assert.AnError}
	c := New(Ruleset{}, op)

	dec := c.Classify(context.Background(), model.RawMessage{
		SenderDomain: "mail.somecorp.com",
		Subject:      "Somecorp careers",
		Body:         "We have received your application and will review it shortly.",
	})

	assert.False(t, dec.Positive)
	assert.Equal(t, "second-opinion-error", dec.Rule)
}

func TestClassify_AmbiguousWithoutOpinionIsNegative(t *testing.T) {
	c := New(Ruleset{}, nil)

	dec := c.Classify(context.Background(), model.RawMessage{
		SenderDomain: "mail.somecorp.com",
		Subject:      "Somecorp careers",
		Body:         "We have received your application and will review it shortly.",
	})

	assert.False(t, dec.Positive)
}

func TestClassify_ExtraRulesLayerOnDefaults(t *testing.T) {
	// One extra negative keyword must not displace the built-in ones.
	c := New(Ruleset{NegativeKeywords: []string{"candidacy closed"}}, nil)

	dec := c.Classify(context.Background(), model.RawMessage{
		SenderDomain: "lever.co",
		Subject:      "Thanks for starting your application",
	})
	assert.False(t, dec.Positive, "built-in negative override survives extras")

	dec = c.Classify(context.Background(), model.RawMessage{
		SenderDomain: "lever.co",
		Subject:      "Update: candidacy closed",
	})
	assert.False(t, dec.Positive, "the extra keyword overrides too")

	// And the built-in positives still apply alongside extras.
	c = New(Ruleset{PositiveKeywords: []string{"candidature received"}}, nil)
	dec = c.Classify(context.Background(), model.RawMessage{
		SenderDomain: "careers.example.com",
		Subject:      "Thank you for applying to Stripe!",
	})
	assert.True(t, dec.Positive)
}

func TestMergeLists(t *testing.T) {
	out := mergeLists([]string{"a", "b"}, []string{"B", " c ", "", "a"})
	assert.Equal(t, []string{"a", "b", " c "}, out)
}

func TestSnippet_RuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 10) // 2 bytes per rune
	out := snippet(s, 5)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, 4, len(out))

	assert.Equal(t, "abc", snippet("abc", 10))
}

func TestClassify_CustomRules(t *testing.T) {
	c := New(Ruleset{
		ATSDomains:       []string{"hiring.acme.test"},
		PositiveKeywords: []string{"candidature received"},
	}, nil)

	dec := c.Classify(context.Background(), model.RawMessage{
		SenderDomain: "hiring.acme.test",
		Subject:      "hello",
	})
	assert.True(t, dec.Positive)

	dec = c.Classify(context.Background(), model.RawMessage{
		SenderDomain: "other.test",
		Subject:      "Candidature received",
	})
	assert.True(t, dec.Positive)
}
