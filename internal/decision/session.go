package decision

import (
	"github.com/anthropics/anthropic-sdk-go"
)

// Session is the decision agent's conversational context for one pipeline
// run. It is created and owned by the run's orchestration wiring, never
// ambient, so concurrent or repeated runs cannot cross-contaminate. The
// executor appends to it after each successful call; it is only mutated
// between step executions.
type Session struct {
	messages []anthropic.MessageParam
}

// NewSession creates an empty conversation.
func NewSession() *Session {
	return &Session{}
}

// Messages returns the conversation so far plus the new user prompt, in the
// form expected by the Messages API.
func (s *Session) Messages(prompt string) []anthropic.MessageParam {
	msgs := make([]anthropic.MessageParam, 0, len(s.messages)+1)
	msgs = append(msgs, s.messages...)
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))
	return msgs
}

// Append records a completed exchange: the user prompt and the assistant's
// response blocks.
func (s *Session) Append(prompt string, response []anthropic.ContentBlockParamUnion) {
	s.messages = append(s.messages, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))
	if len(response) > 0 {
		s.messages = append(s.messages, anthropic.NewAssistantMessage(response...))
	}
}

// Turns returns the number of messages recorded so far.
func (s *Session) Turns() int {
	return len(s.messages)
}
