package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel answers every prompt with reply and records what it was sent.
type fakeModel struct {
	mu    sync.Mutex
	reply string
	err   error
	seen  [][]*schema.Message
}

func (m *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, input)
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *fakeModel) BindTools(_ []*schema.ToolInfo) error { return nil }

func (m *fakeModel) last() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[len(m.seen)-1]
}

func TestAssistant_Translate(t *testing.T) {
	fm := &fakeModel{reply: "  नमस्ते  "}
	a, err := New(context.Background(), fm)
	require.NoError(t, err)

	out, err := a.Translate(context.Background(), "Hello", "hi")
	require.NoError(t, err)
	assert.Equal(t, "नमस्ते", out)

	msgs := fm.last()
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "into Hindi")
	assert.Equal(t, "Hello", msgs[1].Content)
}

func TestAssistant_TranslateEnglishIsIdentity(t *testing.T) {
	fm := &fakeModel{reply: "unused"}
	a, err := New(context.Background(), fm)
	require.NoError(t, err)

	out, err := a.Translate(context.Background(), "Hello", "en")
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)
	assert.Empty(t, fm.seen)

	_, err = a.Translate(context.Background(), "Hello", "fr")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestAssistant_RefineAndAnswer(t *testing.T) {
	fm := &fakeModel{reply: "Money was taken from my account."}
	a, err := New(context.Background(), fm)
	require.NoError(t, err)

	out, err := a.Refine(context.Background(), "uh someone took money")
	require.NoError(t, err)
	assert.Equal(t, "Money was taken from my account.", out)
	assert.Equal(t, "uh someone took money", fm.last()[1].Content)

	_, err = a.Answer(context.Background(), "What is 1930?")
	require.NoError(t, err)
	assert.True(t, strings.Contains(fm.last()[0].Content, "1930"))
}

func TestAssistant_Errors(t *testing.T) {
	fm := &fakeModel{err: errors.New("rate limited")}
	a, err := New(context.Background(), fm)
	require.NoError(t, err)

	_, err = a.Answer(context.Background(), "hello?")
	assert.ErrorContains(t, err, "rate limited")

	fm.err = nil
	fm.reply = "   "
	_, err = a.Refine(context.Background(), "text")
	assert.ErrorContains(t, err, "empty reply")
}

func TestArkConfig_Enabled(t *testing.T) {
	assert.False(t, ArkConfig{Model: "doubao"}.Enabled())
	assert.True(t, ArkConfig{APIKey: "k", Model: "doubao"}.Enabled())

	_, err := NewArkModel(context.Background(), ArkConfig{})
	assert.Error(t, err)
}
