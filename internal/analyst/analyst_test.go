package analyst_test

import (
	"context"
	"errors"
	"testing"

	"dossier/internal/analyst"
	"dossier/internal/llm"

	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply string
	err   error
	calls [][]llm.Message
}

func (f *fakeCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	f.calls = append(f.calls, messages)
	return f.reply, f.err
}

func TestCompanyInfo(t *testing.T) {
	t.Parallel()

	f := &fakeCompleter{reply: "overview"}
	a := analyst.New(f)

	got, err := a.CompanyInfo(t.Context(), "  Acme  ")
	require.NoError(t, err)
	require.Equal(t, "overview", got)

	require.Len(t, f.calls, 1)
	msgs := f.calls[0]
	require.Len(t, msgs, 2)
	require.Equal(t, llm.RoleSystem, msgs[0].Role)
	require.Contains(t, msgs[0].Content, "comprehensive analysis of Acme including")
	require.Contains(t, msgs[0].Content, "market cap if public")
	require.Equal(t, llm.Message{Role: llm.RoleUser, Content: "Tell me about Acme"}, msgs[1])
}

func TestFollowUp(t *testing.T) {
	t.Parallel()

	f := &fakeCompleter{reply: "answer"}
	a := analyst.New(f)

	got, err := a.FollowUp(t.Context(), "Acme", "Who are their competitors?")
	require.NoError(t, err)
	require.Equal(t, "answer", got)

	msgs := f.calls[0]
	require.Contains(t, msgs[0].Content, "general information about Acme")
	require.Contains(t, msgs[0].Content, "Answer their question about Acme")
	require.Equal(t, "About Acme: Who are their competitors?", msgs[1].Content)
}

func TestValidation(t *testing.T) {
	t.Parallel()

	f := &fakeCompleter{}
	a := analyst.New(f)

	_, err := a.CompanyInfo(t.Context(), " ")
	require.ErrorIs(t, err, analyst.ErrCompanyRequired)

	_, err = a.FollowUp(t.Context(), "", "q")
	require.ErrorIs(t, err, analyst.ErrCompanyRequired)

	_, err = a.FollowUp(t.Context(), "Acme", "")
	require.ErrorIs(t, err, analyst.ErrQuestionRequired)

	require.Empty(t, f.calls, "invalid input must not reach the model")
}

func TestCompleterFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("rate limited")
	a := analyst.New(&fakeCompleter{err: boom})

	_, err := a.CompanyInfo(t.Context(), "Acme")
	require.ErrorIs(t, err, boom)

	_, err = a.FollowUp(t.Context(), "Acme", "q")
	require.ErrorIs(t, err, boom)
}
