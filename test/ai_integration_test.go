package test

import (
	"context"
	"os"
	"testing"

	"github.com/jaffee/respcli/pkg/ollama"
	"github.com/jaffee/respcli/pkg/openai"
	"github.com/jaffee/respcli/pkg/respcli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponders(t *testing.T) {
	responders := make(map[string]respcli.Responder)
	responders["echo"] = &respcli.Echo{}
	if key := os.Getenv("OPENAI_KEY"); key != "" {
		conf := openai.NewConfig()
		conf.APIKey = key
		responders["openai"] = openai.NewClient(conf)
	}
	if ollamaHost := os.Getenv("OLLAMA_HOST"); ollamaHost != "" {
		conf := ollama.NewConfig()
		conf.Host = ollamaHost
		responders["ollama"] = ollama.NewClient(conf)
	}

	for name, r := range responders {
		t.Run(name, func(t *testing.T) {
			ChainingTest(t, r, models[name])
		})
	}
}

var models = map[string]string{
	"openai": "gpt-4o-mini",
	"echo":   "echo",
	"ollama": "llama3.2",
}

// ChainingTest continues a stored response and checks that the server
// remembers what was said.
func ChainingTest(t *testing.T, r respcli.Responder, model string) {
	ctx := context.Background()
	first, err := r.CreateResponse(ctx, &respcli.Request{
		Model: model,
		Input: []respcli.Message{respcli.UserMsg("Write a haiku about Paris.")},
		Store: respcli.Bool(true),
	})
	require.NoError(t, err)
	if !assert.NotEmpty(t, first.OutputText()) {
		return
	}

	second, err := r.CreateResponse(ctx, &respcli.Request{
		Model:              model,
		Input:              []respcli.Message{respcli.UserMsg("Now make it rhyme.")},
		PreviousResponseID: first.ID,
		Store:              respcli.Bool(true),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.PreviousResponseID)

	items, err := r.ListInputItems(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Write a haiku about Paris.", items[0].Content)
	assert.Equal(t, respcli.RoleAssistant, items[1].Role)
	assert.Equal(t, "Now make it rhyme.", items[2].Content)
	t.Logf("%s", second.OutputText())
}
