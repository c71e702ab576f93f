package openai

import (
	"context"
	"strings"

	"github.com/jaffee/respcli/pkg/respcli"
	"github.com/openai/openai-go/responses"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

type Config struct {
	APIKey  string `flag:"openai-api-key" help:"Your API key for OpenAI."`
	BaseURL string `flag:"openai-base-url" help:"Base URL of the OpenAI API."`
}

func NewConfig() Config {
	return Config{
		BaseURL: "https://api.openai.com/v1",
	}
}

var _ respcli.Responder = &Client{}   // assert that Client satisfies Responder interface
var _ respcli.ModelLister = &Client{} // and can list models

// Client uses go-openai for files, vector stores and models, and openai-go
// for the Responses API which go-openai lacks.
type Client struct {
	subclient *openai.Client
	rs        responses.ResponseService
}

func NewClient(conf Config) *Client {
	oconf := openai.DefaultConfig(conf.APIKey)
	if conf.BaseURL != "" {
		oconf.BaseURL = strings.TrimSuffix(conf.BaseURL, "/")
	}
	return &Client{
		subclient: openai.NewClientWithConfig(oconf),
		rs:        newResponseService(conf.APIKey, oconf.BaseURL),
	}
}

func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.subclient.ListModels(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing models")
	}
	ret := make([]string, len(resp.Models))
	for i, m := range resp.Models {
		ret[i] = m.ID
	}
	return ret, nil
}
