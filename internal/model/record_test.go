package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKeyPart(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Stripe", "stripe"},
		{"  Software   Engineer\tIntern  ", "software engineer intern"},
		{"Acme Corp", "acme corp"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeKeyPart(tc.in), "input %q", tc.in)
	}
}

func TestCandidate_Row(t *testing.T) {
	c := Candidate{
		Company:     "Stripe",
		Position:    "Software Engineer Intern",
		DateApplied: "2026-03-14",
	}
	assert.Equal(t, []string{"Software Engineer Intern", "Stripe", "2026-03-14"}, c.Row())
}
