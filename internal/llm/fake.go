package llm

import (
	"context"
	"sync"

	"google.golang.org/genai"
)

// FakeClient is an in-memory Client for tests: it hands back canned
// responses (or errors), so callers never hit the network. Safe for
// concurrent use, since analysis batches call it from many goroutines.
//
// By default responses/errors are consumed in call order (by-order mode).
// When Fn is set, it takes priority and determines the response per
// request — use this whenever a test's expectations depend on which item
// produced which outcome, since callers run concurrently and by-order mode
// cannot promise a given item lands on a given index.
type FakeClient struct {
	Responses []string
	Errs      []error
	Fn        func(messages []Message) (string, error)

	mu       sync.Mutex
	calls    int
	Requests [][]Message
}

// Chat implements Client.
func (f *FakeClient) Chat(_ context.Context, messages []Message) (string, error) {
	return f.next(messages)
}

// ChatStructured implements Client.
func (f *FakeClient) ChatStructured(_ context.Context, messages []Message, _ *genai.Schema) (string, error) {
	return f.next(messages)
}

func (f *FakeClient) next(messages []Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Requests = append(f.Requests, messages)

	if f.Fn != nil {
		return f.Fn(messages)
	}

	i := f.calls
	f.calls++

	var err error
	if i < len(f.Errs) {
		err = f.Errs[i]
	}
	if err != nil {
		return "", err
	}

	if i < len(f.Responses) {
		return f.Responses[i], nil
	}
	if len(f.Responses) > 0 {
		return f.Responses[len(f.Responses)-1], nil
	}
	return "", nil
}

// CallCount returns how many chat calls have been made.
func (f *FakeClient) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
