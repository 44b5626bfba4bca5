package domain

import (
	"fmt"
	"strings"
)

// MaxChoiceOptions is the largest number of buttons a Choice may carry.
const MaxChoiceOptions = 3

// RenderKind discriminates the outbound prompt shapes.
type RenderKind string

const (
	RenderText         RenderKind = "text"
	RenderChoice       RenderKind = "choice"
	RenderChecklist    RenderKind = "checklist"
	RenderConfirmation RenderKind = "confirmation"
)

// Option is one selectable button.
type Option struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Renderable is one outbound message, independent of the chat platform format.
type Renderable struct {
	Kind    RenderKind `json:"kind"`
	Title   string     `json:"title,omitempty"`
	Body    string     `json:"body"`
	Options []Option   `json:"options,omitempty"`
	Items   []string   `json:"items,omitempty"`
}

// Text builds a free-text message.
func Text(body string) Renderable {
	return Renderable{Kind: RenderText, Body: body}
}

// Textf builds a formatted free-text message.
func Textf(format string, args ...any) Renderable {
	return Text(fmt.Sprintf(format, args...))
}

// Choice builds a single-choice prompt.
func Choice(body string, opts ...Option) Renderable {
	return Renderable{Kind: RenderChoice, Body: body, Options: opts}
}

// Checklist builds a rendered list of items with an optional body.
func Checklist(title, body string, items ...string) Renderable {
	return Renderable{Kind: RenderChecklist, Title: title, Body: body, Items: items}
}

// Confirmation builds a summary with confirm/edit style options.
func Confirmation(title, body string, opts ...Option) Renderable {
	return Renderable{Kind: RenderConfirmation, Title: title, Body: body, Options: opts}
}

// Validate checks the shape constraints shared by every chat platform.
func (r Renderable) Validate() error {
	if len(r.Options) > MaxChoiceOptions {
		return fmt.Errorf("%s renderable has %d options, at most %d allowed", r.Kind, len(r.Options), MaxChoiceOptions)
	}
	if r.Kind == RenderChoice && len(r.Options) == 0 {
		return fmt.Errorf("choice renderable without options")
	}
	seen := make(map[string]bool, len(r.Options))
	for _, o := range r.Options {
		if o.ID == "" {
			return fmt.Errorf("option %q has no id", o.Title)
		}
		if seen[o.ID] {
			return fmt.Errorf("duplicate option id %q", o.ID)
		}
		seen[o.ID] = true
	}
	return nil
}

// PlainText flattens the renderable for transports without rich messages.
func (r Renderable) PlainText() string {
	var sb strings.Builder
	if r.Title != "" {
		sb.WriteString(r.Title)
		sb.WriteString("\n\n")
	}
	sb.WriteString(r.Body)
	for i, item := range r.Items {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, item)
	}
	for _, o := range r.Options {
		fmt.Fprintf(&sb, "\n[%s] %s", o.ID, o.Title)
	}
	return sb.String()
}
