// Package assistant implements the natural-language assistant on an eino
// chat model: description refinement, outbound translation and answers to
// general questions.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

const refinePrompt = `You clean up voice-note transcripts for a cybercrime complaint desk.
Rewrite the transcript as a clear first-person English description of the incident.
Keep every fact, amount, date, phone number, account number and name. Do not add facts.
Reply with the description only.`

const translatePrompt = `You translate chatbot messages for a cybercrime helpline.
Translate the user's message into {language}.
Keep emojis, numbers, URLs, case IDs and *asterisk* formatting unchanged.
Reply with the translation only.`

const answerPrompt = `You answer questions from citizens contacting the Indian cybercrime helpline.
Be brief and practical, at most five sentences.
For money lost to fraud, tell them to call 1930 immediately and report at https://cybercrime.gov.in.
Never ask for passwords, OTPs, PINs or card numbers.`

// languages names the supported translation targets.
var languages = map[string]string{
	"en": "English",
	"hi": "Hindi",
	"or": "Odia",
}

// ErrUnsupportedLanguage is returned for a translation target without a name.
var ErrUnsupportedLanguage = errors.New("unsupported language")

type chain = compose.Runnable[map[string]any, *schema.Message]

// Assistant implements ports.Assistant.
type Assistant struct {
	refine    chain
	translate chain
	answer    chain
}

// New compiles the assistant chains on chatModel.
func New(ctx context.Context, chatModel model.BaseChatModel) (*Assistant, error) {
	if chatModel == nil {
		return nil, errors.New("assistant: nil chat model")
	}
	refine, err := compile(ctx, chatModel, refinePrompt, "{text}")
	if err != nil {
		return nil, fmt.Errorf("compile refine chain: %w", err)
	}
	translate, err := compile(ctx, chatModel, translatePrompt, "{text}")
	if err != nil {
		return nil, fmt.Errorf("compile translate chain: %w", err)
	}
	answer, err := compile(ctx, chatModel, answerPrompt, "{question}")
	if err != nil {
		return nil, fmt.Errorf("compile answer chain: %w", err)
	}
	return &Assistant{refine: refine, translate: translate, answer: answer}, nil
}

func compile(ctx context.Context, chatModel model.BaseChatModel, system, user string) (chain, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	c := compose.NewChain[map[string]any, *schema.Message]()
	c.AppendChatTemplate(tpl)
	c.AppendChatModel(chatModel)
	return c.Compile(ctx)
}

// Refine rewrites a raw transcript into a clean description.
func (a *Assistant) Refine(ctx context.Context, raw string) (string, error) {
	return run(ctx, a.refine, map[string]any{"text": raw})
}

// Translate renders text in the language named by targetLang.
func (a *Assistant) Translate(ctx context.Context, text, targetLang string) (string, error) {
	name, ok := languages[targetLang]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, targetLang)
	}
	if targetLang == "en" {
		return text, nil
	}
	return run(ctx, a.translate, map[string]any{"language": name, "text": text})
}

// Answer replies to a general question.
func (a *Assistant) Answer(ctx context.Context, question string) (string, error) {
	return run(ctx, a.answer, map[string]any{"question": question})
}

func run(ctx context.Context, c chain, vars map[string]any) (string, error) {
	msg, err := c.Invoke(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("run assistant chain: %w", err)
	}
	out := strings.TrimSpace(msg.Content)
	if out == "" {
		return "", errors.New("assistant returned an empty reply")
	}
	return out, nil
}

// ArkConfig selects an Ark-hosted model.
type ArkConfig struct {
	BaseURL     string
	Region      string
	APIKey      string
	Model       string
	Temperature *float32
	MaxTokens   *int
}

// Enabled reports whether the credentials needed for a model are present.
func (c ArkConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// NewArkModel creates the chat model behind the assistant.
func NewArkModel(ctx context.Context, c ArkConfig) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, errors.New("ark api key and model are required")
	}
	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	})
}
