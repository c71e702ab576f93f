package respcli

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrResponseNotFound = errors.New("previous response not found")
	ErrContextLength    = errors.New("conversation exceeds the context window")
)

type stored struct {
	input []Message
	reply Message
}

// Memory keeps conversation state for backends which have none of their own,
// so they can offer chaining through previous response IDs. Instructions are
// never kept; they only apply to the request they were sent with.
type Memory struct {
	// Limit is the maximum number of messages sent to the model. Zero means
	// unlimited.
	Limit int

	mu    sync.Mutex
	seq   int
	convs map[string]stored
}

func NewMemory(limit int) *Memory {
	return &Memory{
		Limit: limit,
		convs: make(map[string]stored),
	}
}

// NextID allocates a new response ID.
func (m *Memory) NextID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return fmt.Sprintf("resp_%06d", m.seq)
}

// Resolve returns the messages the model should see for req: the stored
// conversation of the previous response, its reply, then the new input.
func (m *Memory) Resolve(req *Request) ([]Message, error) {
	var history []Message
	if req.PreviousResponseID != "" {
		m.mu.Lock()
		prev, ok := m.convs[req.PreviousResponseID]
		m.mu.Unlock()
		if !ok {
			return nil, errors.Wrapf(ErrResponseNotFound, "'%s'", req.PreviousResponseID)
		}
		history = append(history, prev.input...)
		history = append(history, prev.reply)
	}
	history = append(history, req.Input...)

	if m.Limit > 0 && len(history) > m.Limit {
		if req.Truncation != TruncationAuto {
			return nil, errors.Wrapf(ErrContextLength, "%d messages, limit is %d", len(history), m.Limit)
		}
		history = history[len(history)-m.Limit:]
	}
	return history, nil
}

// Save records the conversation behind response id if store is true.
func (m *Memory) Save(id string, input []Message, reply Message, store bool) {
	if !store {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs[id] = stored{
		input: append([]Message(nil), input...),
		reply: reply,
	}
}

// InputItems returns the messages that were sent to produce response id.
func (m *Memory) InputItems(id string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.convs[id]
	if !ok {
		return nil, errors.Wrapf(ErrResponseNotFound, "'%s'", id)
	}
	return append([]Message(nil), conv.input...), nil
}

// WithInstructions prepends instructions as a system message when set.
func WithInstructions(instructions string, msgs []Message) []Message {
	if instructions == "" {
		return msgs
	}
	return append([]Message{{Role: RoleSystem, Content: instructions}}, msgs...)
}

// Respond runs one turn against a stateless model: it resolves the history
// for req, hands it to generate with any instructions prepended, and stores
// the exchange.
func (m *Memory) Respond(req *Request, generate func(msgs []Message) (string, error)) (*Response, error) {
	history, err := m.Resolve(req)
	if err != nil {
		return nil, err
	}
	text, err := generate(WithInstructions(req.Instructions, history))
	if err != nil {
		return nil, err
	}

	id := m.NextID()
	m.Save(id, history, Message{Role: RoleAssistant, Content: text}, req.Stored())

	resp := NewTextResponse(id, req.Model, text)
	resp.Instructions = req.Instructions
	resp.PreviousResponseID = req.PreviousResponseID
	resp.Store = req.Stored()
	resp.Truncation = req.Truncation
	if resp.Truncation == "" {
		resp.Truncation = TruncationDisabled
	}
	return resp, nil
}
