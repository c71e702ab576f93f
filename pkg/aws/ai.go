package aws

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/jaffee/respcli/pkg/respcli"
	"github.com/pkg/errors"
)

var _ respcli.Responder = &AI{}
var _ respcli.ModelLister = &AI{}

const (
	ModelLlama213BChatV1  = "meta.llama2-13b-chat-v1"
	ModelLlama270BChatV1  = "meta.llama2-70b-chat-v1"
	ModelTitanTextExpress = "amazon.titan-text-express-v1"
	ModelTitanTextLite    = "amazon.titan-text-lite-v1"
)

type Config struct {
	MaxGenLen    int `flag:"bedrock-max-gen-len" help:"Maximum number of tokens Bedrock models generate per response."`
	ContextLimit int `flag:"bedrock-context-limit" help:"Maximum number of messages sent to Bedrock models (0 for no limit)."`
}

func NewConfig() Config {
	return Config{
		MaxGenLen: 512,
	}
}

// NewAI gets a new AI which uses the default AWS configuration (i.e. ~/.aws/config and standard AWS env vars).
func NewAI(conf Config) (*AI, error) {
	// Load the Shared AWS Configuration (~/.aws/config)
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, errors.Wrap(err, "loading default aws config")
	}
	return NewAIFromConfig(cfg, conf), nil
}

func NewAIFromConfig(cfg aws.Config, conf Config) *AI {
	return &AI{
		client:    bedrockruntime.NewFromConfig(cfg),
		models:    bedrock.NewFromConfig(cfg),
		maxGenLen: conf.MaxGenLen,
		mem:       respcli.NewMemory(conf.ContextLimit),
	}
}

// AI answers requests with Bedrock foundation models. Bedrock keeps no
// conversation state so chaining is done locally.
type AI struct {
	client    *bedrockruntime.Client
	models    *bedrock.Client
	maxGenLen int
	mem       *respcli.Memory
}

func (ai *AI) CreateResponse(ctx context.Context, req *respcli.Request) (*respcli.Response, error) {
	if len(req.Tools) > 0 {
		return nil, errors.New("bedrock models don't support tools")
	}
	sub, err := subModelFor(req.Model)
	if err != nil {
		return nil, err
	}
	return ai.mem.Respond(req, func(msgs []respcli.Message) (string, error) {
		return ai.generate(ctx, sub, req, msgs)
	})
}

func (ai *AI) ListInputItems(ctx context.Context, responseID string) ([]respcli.Message, error) {
	return ai.mem.InputItems(responseID)
}

// ListModels lists the text foundation models available in the configured
// region.
func (ai *AI) ListModels(ctx context.Context) ([]string, error) {
	out, err := ai.models.ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{})
	if err != nil {
		return nil, errors.Wrap(err, "listing foundation models")
	}
	ret := make([]string, 0, len(out.ModelSummaries))
	for _, m := range out.ModelSummaries {
		ret = append(ret, aws.ToString(m.ModelId))
	}
	return ret, nil
}

func (ai *AI) generate(ctx context.Context, sub SubModel, req *respcli.Request, msgs []respcli.Message) (string, error) {
	body, err := sub.MakeBody(msgs, req.Temperature, ai.maxGenLen)
	if err != nil {
		return "", errors.Wrap(err, "making body")
	}

	accept := "application/json"
	model := req.Model
	if model == "" {
		model = ModelLlama213BChatV1
	}
	streamOutput, err := ai.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		Body:        body,
		ModelId:     &model,
		Accept:      &accept,
		ContentType: &accept,
	})
	if err != nil {
		return "", errors.Wrap(err, "invoking model")
	}
	stream := streamOutput.GetStream()
	defer stream.Close()

	bldr := &strings.Builder{}
	for event := range stream.Events() {
		switch eventT := event.(type) {
		case *types.ResponseStreamMemberChunk:
			chunk, err := sub.HandleResponseChunk(eventT.Value.Bytes)
			if err != nil {
				return "", errors.Wrap(err, "handling chunk")
			}
			_, _ = bldr.Write(chunk)
		default:
			return "", errors.Errorf("unknown event type %+v", eventT)
		}
	}
	if err := stream.Err(); err != nil {
		return "", errors.Wrap(err, "reading stream")
	}
	return bldr.String(), nil
}

// SubModel handles the request and response bodies of one model family.
type SubModel interface {
	MakeBody(msgs []respcli.Message, temperature float64, maxGenLen int) ([]byte, error)
	HandleResponseChunk(chunkBytes []byte) ([]byte, error)
}

func subModelFor(model string) (SubModel, error) {
	switch model {
	case ModelLlama213BChatV1, ModelLlama270BChatV1, "":
		return LlamaSubModel{}, nil
	case ModelTitanTextExpress, ModelTitanTextLite:
		return TitanTextSubModel{}, nil
	default:
		return nil, errors.Errorf("%s is not currently a supported model (try '%s')", model, ModelLlama213BChatV1)
	}
}
