package aws

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jaffee/respcli/pkg/respcli"
	"github.com/pkg/errors"
)

type TitanTextSubModel struct{}

func (m TitanTextSubModel) MakeBody(msgs []respcli.Message, temperature float64, maxGenLen int) ([]byte, error) {
	prompt, err := titanPromptifyMessages(msgs)
	if err != nil {
		return nil, errors.Wrap(err, "building prompt")
	}
	bs, err := json.Marshal(titanInvokeRequest{
		InputText: prompt,
		TextGenerationConfig: &titanTextGenerationConfig{
			Temperature:   float32(temperature),
			TopP:          0.9,
			MaxTokenCount: maxGenLen,
			StopSequences: []string{"User:"},
		},
	})
	return bs, errors.Wrap(err, "marshalling")
}

func (m TitanTextSubModel) HandleResponseChunk(chunkBytes []byte) ([]byte, error) {
	chunk := titanEvent{}
	if err := json.Unmarshal(chunkBytes, &chunk); err != nil {
		return nil, errors.Wrap(err, "unmarshaling")
	}
	return []byte(chunk.OutputText), nil
}

// titanPromptifyMessages renders a conversation as the User/Bot transcript
// Titan text models expect, ending with an open Bot turn.
func titanPromptifyMessages(msgs []respcli.Message) (string, error) {
	if len(msgs) == 0 {
		return "", errors.New("need at least one message")
	}
	bldr := &strings.Builder{}
	chatting := false
	for _, msg := range msgs {
		switch msg.Role {
		case respcli.RoleSystem, respcli.RoleDeveloper:
			if chatting {
				return "", errors.Errorf("%s messages must come before the conversation", msg.Role)
			}
			fmt.Fprintf(bldr, "%s\n\n", msg.Content)
		case respcli.RoleUser:
			chatting = true
			fmt.Fprintf(bldr, "User: %s\n\n", msg.Content)
		case respcli.RoleAssistant:
			chatting = true
			fmt.Fprintf(bldr, "Bot: %s\n\n", msg.Content)
		default:
			return "", errors.Errorf("unknown role '%s'", msg.Role)
		}
	}
	bldr.WriteString("Bot: ")
	return bldr.String(), nil
}

type titanInvokeRequest struct {
	InputText            string                     `json:"inputText"`
	TextGenerationConfig *titanTextGenerationConfig `json:"textGenerationConfig,omitempty"`
}

type titanTextGenerationConfig struct {
	Temperature   float32  `json:"temperature"`
	TopP          float32  `json:"topP"`
	MaxTokenCount int      `json:"maxTokenCount"`
	StopSequences []string `json:"stopSequences"`
}

type titanEvent struct {
	OutputText                string  `json:"outputText"`
	Index                     int     `json:"index"`
	TotalOutputTextTokenCount int     `json:"totalOutputTextTokenCount"`
	CompletionReason          *string `json:"completionReason"`
}
