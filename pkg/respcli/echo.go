package respcli

import (
	"context"
	"fmt"
	"sync"
)

var _ Responder = &Echo{} // assert that Echo satisfies Responder interface

// Echo is a Responder for testing which repeats the last message it was sent
// back with some extra information. It keeps conversations in memory so
// chaining, storage and instructions behave as they do against a real
// backend.
type Echo struct {
	// ContextLimit caps the number of messages in a conversation.
	ContextLimit int

	once sync.Once
	mem  *Memory
}

func (e *Echo) memory() *Memory {
	e.once.Do(func() { e.mem = NewMemory(e.ContextLimit) })
	return e.mem
}

func (e *Echo) CreateResponse(ctx context.Context, req *Request) (*Response, error) {
	return e.memory().Respond(req, func(msgs []Message) (string, error) {
		if len(msgs) == 0 {
			return "0 msgs", nil
		}
		return fmt.Sprintf("msgs: %d, role: %s, content: %s", len(msgs), RoleAssistant, msgs[len(msgs)-1].Content), nil
	})
}

func (e *Echo) ListInputItems(ctx context.Context, responseID string) ([]Message, error) {
	return e.memory().InputItems(responseID)
}

func (e *Echo) ListModels(ctx context.Context) ([]string, error) {
	return []string{"echo"}, nil
}
