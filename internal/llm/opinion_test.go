package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	text string
	err  error
	req  Request
}

func (s *scriptedClient) Complete(ctx context.Context, req Request) (Response, error) {
	s.req = req
	return Response{Text: s.text}, s.err
}

func TestOpinion_Yes(t *testing.T) {
	c := &scriptedClient{text: "Yes"}
	o := NewOpinion(c)

	ok, err := o.IsConfirmation(context.Background(), "Application received", "We got it.")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, c.req.Prompt, "Application received")
}

func TestOpinion_No(t *testing.T) {
	c := &scriptedClient{text: " no \n"}
	o := NewOpinion(c)

	ok, err := o.IsConfirmation(context.Background(), "Jobs for you", "Check these out.")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpinion_UnexpectedAnswer(t *testing.T) {
	c := &scriptedClient{text: "It depends on the email."}
	o := NewOpinion(c)

	_, err := o.IsConfirmation(context.Background(), "x", "y")
	assert.Error(t, err)
}

func TestOpinion_ClientError(t *testing.T) {
	c := &scriptedClient{err: assert.AnError}
	o := NewOpinion(c)

	_, err := o.IsConfirmation(context.Background(), "x", "y")
	assert.ErrorIs(t, err, assert.AnError)
}
