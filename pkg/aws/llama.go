package aws

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jaffee/respcli/pkg/respcli"
	"github.com/pkg/errors"
)

type LlamaSubModel struct{}

func (m LlamaSubModel) MakeBody(msgs []respcli.Message, temperature float64, maxGenLen int) ([]byte, error) {
	prompt, err := llamaPromptifyMessages(msgs)
	if err != nil {
		return nil, errors.Wrap(err, "building prompt")
	}
	bod := llamaBody{
		Prompt:      prompt,
		Temperature: temperature,
		TopP:        0.9,
		MaxGenLen:   maxGenLen,
	}

	bs, err := json.Marshal(bod)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling")
	}

	return bs, nil
}

func (m LlamaSubModel) HandleResponseChunk(chunkBytes []byte) ([]byte, error) {
	chunk := llamaEvent{}
	if err := json.Unmarshal(chunkBytes, &chunk); err != nil {
		return nil, err
	}
	return []byte(chunk.Generation), nil
}

type llamaBody struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxGenLen   int     `json:"max_gen_len"`
}

// llamaPromptifyMessages renders a conversation in the llama2 chat template.
// Leading system and developer messages share the <<SYS>> block. After them, roles must alternate between user and
// assistant.
func llamaPromptifyMessages(msgs []respcli.Message) (string, error) {
	if len(msgs) == 0 {
		return "", errors.New("need at least one message")
	}
	bldr := &strings.Builder{}
	bldr.WriteString("<s>[INST] ")
	var sys []string
	for len(msgs) > 0 && (msgs[0].Role == respcli.RoleSystem || msgs[0].Role == respcli.RoleDeveloper) {
		sys = append(sys, msgs[0].Content)
		msgs = msgs[1:]
	}
	if len(sys) > 0 {
		fmt.Fprintf(bldr, "<<SYS>>\n%s\n<</SYS>>\n", strings.Join(sys, "\n"))
	}
	// truncated histories can start mid exchange
	for len(msgs) > 0 && msgs[0].Role == respcli.RoleAssistant {
		msgs = msgs[1:]
	}
	if len(msgs) == 0 {
		return "", errors.New("need a user message")
	}
	for i, msg := range msgs {
		expect := respcli.RoleUser
		if i%2 == 1 {
			expect = respcli.RoleAssistant
		}
		if msg.Role != expect {
			return "", errors.Errorf("message %d has role '%s', expected '%s'", i, msg.Role, expect)
		}
		if expect == respcli.RoleUser {
			fmt.Fprintf(bldr, "%s [/INST] ", msg.Content)
		} else {
			fmt.Fprintf(bldr, "%s </s><s>[INST] ", msg.Content)
		}
	}
	return bldr.String(), nil
}

type llamaEvent struct {
	Generation           string  `json:"generation"`
	PromptTokenCount     int     `json:"prompt_token_count"`
	GenerationTokenCount int     `json:"generation_token_count"`
	StopReason           *string `json:"stop_reason"`
}
