package respcli

import (
	"context"
	"encoding/json"
	"strings"
)

// Responder creates model responses. Implementations keep conversation state
// so that a request may continue from a previously stored response.
type Responder interface {
	CreateResponse(ctx context.Context, req *Request) (*Response, error)
	// ListInputItems returns the conversation that produced the response,
	// oldest first.
	ListInputItems(ctx context.Context, responseID string) ([]Message, error)
}

// ModelLister is implemented by backends that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
	RoleSystem    = "system"
	RoleDeveloper = "developer"
)

const (
	TruncationAuto     = "auto"
	TruncationDisabled = "disabled"
)

const (
	ToolWebSearch  = "web_search_preview"
	ToolChoiceAuto = "auto"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func UserMsg(content string) Message { return Message{Role: RoleUser, Content: content} }

type Tool struct {
	Type string `json:"type"`
}

// TextFormat requests structured output. Schema is marshalled as the JSON
// schema the output must satisfy.
type TextFormat struct {
	Type   string         `json:"type"`
	Name   string         `json:"name,omitempty"`
	Schema json.Marshaler `json:"schema,omitempty"`
	Strict bool           `json:"strict,omitempty"`
}

type Request struct {
	Model        string
	Input        []Message
	Instructions string
	// PreviousResponseID continues the conversation of a stored response.
	PreviousResponseID string
	// Store defaults to true when nil.
	Store       *bool
	Truncation  string
	Tools       []Tool
	ToolChoice  string
	Format      *TextFormat
	Temperature float64
}

// Stored reports whether the response to req will be kept for chaining.
func (r *Request) Stored() bool {
	return r.Store == nil || *r.Store
}

func Bool(b bool) *bool { return &b }

type Annotation struct {
	Type       string `json:"type"`
	URL        string `json:"url,omitempty"`
	Title      string `json:"title,omitempty"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

type OutputContent struct {
	Type        string       `json:"type"`
	Text        string       `json:"text"`
	Annotations []Annotation `json:"annotations"`
}

type OutputItem struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Role    string          `json:"role,omitempty"`
	Status  string          `json:"status,omitempty"`
	Content []OutputContent `json:"content,omitempty"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type Response struct {
	ID                 string       `json:"id"`
	Model              string       `json:"model"`
	Status             string       `json:"status"`
	CreatedAt          int64        `json:"created_at"`
	Instructions       string       `json:"instructions,omitempty"`
	PreviousResponseID string       `json:"previous_response_id,omitempty"`
	Store              bool         `json:"store"`
	Truncation         string       `json:"truncation,omitempty"`
	Output             []OutputItem `json:"output"`
	Usage              Usage        `json:"usage"`
}

const (
	ItemMessage       = "message"
	ItemWebSearchCall = "web_search_call"
	ContentOutputText = "output_text"
	AnnotationURL     = "url_citation"
)

// OutputText concatenates the text of every output message.
func (r *Response) OutputText() string {
	bldr := &strings.Builder{}
	for _, item := range r.Output {
		if item.Type != ItemMessage {
			continue
		}
		for _, c := range item.Content {
			if c.Type == ContentOutputText {
				bldr.WriteString(c.Text)
			}
		}
	}
	return bldr.String()
}

// Citations returns every URL citation attached to the output text.
func (r *Response) Citations() []Annotation {
	var ret []Annotation
	for _, item := range r.Output {
		for _, c := range item.Content {
			for _, a := range c.Annotations {
				if a.Type == AnnotationURL {
					ret = append(ret, a)
				}
			}
		}
	}
	return ret
}

// NewTextResponse builds a completed response holding a single assistant
// message. It is used by backends which only produce plain text.
func NewTextResponse(id, model, text string) *Response {
	msgID := "msg_" + strings.TrimPrefix(id, "resp_")
	return &Response{
		ID:     id,
		Model:  model,
		Status: "completed",
		Output: []OutputItem{{
			Type:   ItemMessage,
			ID:     msgID,
			Role:   RoleAssistant,
			Status: "completed",
			Content: []OutputContent{{
				Type:        ContentOutputText,
				Text:        text,
				Annotations: []Annotation{},
			}},
		}},
	}
}
