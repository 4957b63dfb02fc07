// Package providertest provides an in-memory docmail.Provider for tests.
package providertest

import (
	"context"
	"sync"

	"github.com/Pandentia/docmail/docmail"
)

// Stub is a docmail.Provider whose replies are set by the test.
// It records every call so tests can assert which steps ran.
type Stub struct {
	Token     docmail.Token
	MessageID string
	SentBody  []byte

	AuthErr   error
	CreateErr error
	AttachErr error
	SendErr   error
	ListErr   error

	mu     sync.Mutex
	calls  map[string]int
	tokens []docmail.Token
	drafts []docmail.Draft
	files  [][]byte
}

var _ docmail.Provider = (*Stub)(nil)

// Operation names used by Calls.
const (
	OpAuthenticate = "authenticate"
	OpCreate       = "create"
	OpAttach       = "attach"
	OpSend         = "send"
	OpListSent     = "list-sent"
)

func (s *Stub) record(op string, token docmail.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[op]++
	if op != OpAuthenticate {
		s.tokens = append(s.tokens, token)
	}
}

// Calls returns how many times op was invoked.
func (s *Stub) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TotalCalls returns the number of provider calls of any kind.
func (s *Stub) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// Tokens returns the token passed to each authenticated call, in order.
func (s *Stub) Tokens() []docmail.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]docmail.Token(nil), s.tokens...)
}

// Drafts returns every draft passed to CreateMessage.
func (s *Stub) Drafts() []docmail.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]docmail.Draft(nil), s.drafts...)
}

// Files returns every file passed to AttachFile.
func (s *Stub) Files() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.files...)
}

func (s *Stub) Authenticate(_ context.Context, _ docmail.Credentials) (docmail.Token, error) {
	s.record(OpAuthenticate, "")
	if s.AuthErr != nil {
		return "", s.AuthErr
	}
	return s.Token, nil
}

func (s *Stub) CreateMessage(_ context.Context, token docmail.Token, draft docmail.Draft) (string, error) {
	s.record(OpCreate, token)
	s.mu.Lock()
	s.drafts = append(s.drafts, draft)
	s.mu.Unlock()
	if s.CreateErr != nil {
		return "", s.CreateErr
	}
	return s.MessageID, nil
}

func (s *Stub) AttachFile(_ context.Context, token docmail.Token, _ string, file []byte) error {
	s.record(OpAttach, token)
	s.mu.Lock()
	s.files = append(s.files, file)
	s.mu.Unlock()
	return s.AttachErr
}

func (s *Stub) SendMessage(_ context.Context, token docmail.Token, _ string) error {
	s.record(OpSend, token)
	return s.SendErr
}

func (s *Stub) ListSent(_ context.Context, token docmail.Token) ([]byte, error) {
	s.record(OpListSent, token)
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	return s.SentBody, nil
}
