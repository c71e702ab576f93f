package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jaffee/respcli/pkg/respcli"
	"github.com/pkg/errors"
)

var _ respcli.Responder = &Client{} // assert that Client satisfies Responder interface
var _ respcli.ModelLister = &Client{}

type Config struct {
	Host         string `flag:"ollama-host" help:"Endpoint to hit for Ollama API."`
	ContextLimit int    `flag:"ollama-context-limit" help:"Maximum number of messages sent to Ollama (0 for no limit)."`
}

func NewConfig() Config {
	return Config{
		Host: "http://localhost:11434",
	}
}

// Client talks to a local Ollama server. Ollama's chat endpoint is stateless
// so conversations are chained in memory.
type Client struct {
	host       string
	httpClient *http.Client
	mem        *respcli.Memory
}

func NewClient(conf Config) *Client {
	return &Client{
		host:       strings.TrimSuffix(conf.Host, "/"),
		httpClient: http.DefaultClient,
		mem:        respcli.NewMemory(conf.ContextLimit),
	}
}

func (c *Client) CreateResponse(ctx context.Context, req *respcli.Request) (*respcli.Response, error) {
	if len(req.Tools) > 0 {
		return nil, errors.New("ollama doesn't support hosted tools")
	}
	return c.mem.Respond(req, func(msgs []respcli.Message) (string, error) {
		return c.chat(ctx, req, msgs)
	})
}

func (c *Client) ListInputItems(ctx context.Context, responseID string) ([]respcli.Message, error) {
	return c.mem.InputItems(responseID)
}

// ListModels lists the models which have been pulled locally.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "making GET")
	}
	defer httpResp.Body.Close()
	if err := checkStatus(httpResp); err != nil {
		return nil, err
	}

	tags := TagsResponse{}
	if err := json.NewDecoder(httpResp.Body).Decode(&tags); err != nil {
		return nil, errors.Wrap(err, "unmarshaling body")
	}
	ret := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		ret = append(ret, m.Name)
	}
	return ret, nil
}

func (c *Client) chat(ctx context.Context, req *respcli.Request, msgs []respcli.Message) (string, error) {
	reqStruct := ChatRequest{
		Model:    req.Model,
		Messages: msgs,
		Options:  GenerateOptions{Temperature: req.Temperature},
		Stream:   true,
	}
	if req.Format != nil && req.Format.Schema != nil {
		schema, err := req.Format.Schema.MarshalJSON()
		if err != nil {
			return "", errors.Wrap(err, "marshaling format")
		}
		reqStruct.Format = schema
	}
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	if err := enc.Encode(reqStruct); err != nil {
		return "", errors.Wrap(err, "encoding request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/api/chat", c.host), buf)
	if err != nil {
		return "", errors.Wrap(err, "building request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "making POST")
	}
	defer httpResp.Body.Close()
	if err := checkStatus(httpResp); err != nil {
		return "", err
	}

	respStruct := ChatResponse{}
	dec := json.NewDecoder(httpResp.Body)
	respMsgBldr := &strings.Builder{}
	for !respStruct.Done {
		if err := dec.Decode(&respStruct); err != nil {
			return "", errors.Wrap(err, "unmarshaling body")
		}
		if respStruct.Error != "" {
			return "", errors.Errorf("ollama: %s", respStruct.Error)
		}
		respMsgBldr.WriteString(respStruct.Message.Content)
	}
	return respMsgBldr.String(), nil
}

func checkStatus(httpResp *http.Response) error {
	if httpResp.StatusCode > 299 {
		bod, _ := io.ReadAll(httpResp.Body)
		return errors.Errorf("bad status %v, bod: '%s'", httpResp.Status, bod)
	}
	return nil
}

type ChatRequest struct {
	Model    string            `json:"model"`
	Messages []respcli.Message `json:"messages"`
	Format   json.RawMessage   `json:"format,omitempty"`  // "json" or a JSON schema the reply must follow
	Options  GenerateOptions   `json:"options,omitempty"` // additional model parameters listed in the documentation for the Modelfile such as temperature
	Stream   bool              `json:"stream"`            // if false the response will be returned as a single response object, rather than a stream of objects
}

type GenerateOptions struct {
	Temperature float64 `json:"temperature"`

	// like a billion others, see https://github.com/ollama/ollama/blob/main/docs/api.md
}

type ChatResponse struct {
	Model              string          `json:"model"`
	CreatedAt          string          `json:"created_at"`
	Message            respcli.Message `json:"message"`
	Done               bool            `json:"done"`
	DoneReason         string          `json:"done_reason"`
	Error              string          `json:"error"`
	TotalDuration      time.Duration   `json:"total_duration"`
	LoadDuration       time.Duration   `json:"load_duration"`
	PromptEvalCount    int             `json:"prompt_eval_count"`
	PromptEvalDuration time.Duration   `json:"prompt_eval_duration"`
	EvalCount          int             `json:"eval_count"`
	EvalDuration       time.Duration   `json:"eval_duration"`
}

type TagsResponse struct {
	Models []struct {
		Name       string `json:"name"`
		ModifiedAt string `json:"modified_at"`
		Size       int64  `json:"size"`
	} `json:"models"`
}
