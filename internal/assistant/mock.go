package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// AskCall records one question the mock received.
type AskCall struct {
	Context  string
	Question string
}

// Mock is a deterministic in-process Assistant used in tests and whenever
// no upstream endpoint is configured. The generated answer acknowledges
// the question and how much report context was available.
type Mock struct {
	mu    sync.Mutex
	calls []AskCall

	// Answer overrides the generated response when non-empty.
	Answer string
	// Err is returned from Ask when non-nil.
	Err error
}

var _ Assistant = (*Mock)(nil)

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Ask(ctx context.Context, reportContext, question string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, AskCall{Context: reportContext, Question: question})
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.Answer != "" {
		return m.Answer, nil
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question must not be empty")
	}

	return fmt.Sprintf(
		"The assistant is not configured. Received question %q against %d characters of report context.",
		question, len(reportContext),
	), nil
}

// Calls returns a copy of the questions asked so far.
func (m *Mock) Calls() []AskCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AskCall(nil), m.calls...)
}
