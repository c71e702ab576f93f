package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jaffee/respcli/pkg/respcli"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/pkg/errors"
)

func newResponseService(apiKey, baseURL string) responses.ResponseService {
	opts := []option.RequestOption{option.WithBaseURL(baseURL)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return oai.NewClient(opts...).Responses
}

// CreateResponse calls the Responses API.
func (c *Client) CreateResponse(ctx context.Context, req *respcli.Request) (*respcli.Response, error) {
	params, err := newResponseParams(req)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	resp, err := c.rs.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(apiErr(err), "creating response")
	}

	respBody := responseBody{}
	if err := json.Unmarshal([]byte(resp.RawJSON()), &respBody); err != nil {
		return nil, errors.Wrap(err, "unmarshaling response")
	}
	if respBody.Error != nil {
		return nil, errors.Errorf("response %s failed: %s", respBody.ID, respBody.Error)
	}
	return &respBody.Response, nil
}

// ListInputItems pages through the input items of a stored response, oldest
// first.
func (c *Client) ListInputItems(ctx context.Context, responseID string) ([]respcli.Message, error) {
	var ret []respcli.Message
	iter := c.rs.InputItems.ListAutoPaging(ctx, responseID, responses.InputItemListParams{
		Order: responses.InputItemListParamsOrderAsc,
		Limit: oai.Int(pageSize),
	})
	for iter.Next() {
		item := inputItem{}
		if err := json.Unmarshal([]byte(iter.Current().RawJSON()), &item); err != nil {
			return nil, errors.Wrap(err, "unmarshaling input item")
		}
		if item.Type != respcli.ItemMessage {
			continue
		}
		ret = append(ret, item.message())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(apiErr(err), "listing input items")
	}
	return ret, nil
}

func newResponseParams(req *respcli.Request) (responses.ResponseNewParams, error) {
	input := make(responses.ResponseInputParam, len(req.Input))
	for i, msg := range req.Input {
		input[i] = responses.ResponseInputItemUnionParam{
			OfMessage: &responses.EasyInputMessageParam{
				Role:    responses.EasyInputMessageRole(msg.Role),
				Content: responses.EasyInputMessageContentUnionParam{OfString: oai.String(msg.Content)},
			},
		}
	}
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(req.Model),
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: input},
	}
	if req.Instructions != "" {
		params.Instructions = oai.String(req.Instructions)
	}
	if req.PreviousResponseID != "" {
		params.PreviousResponseID = oai.String(req.PreviousResponseID)
	}
	if req.Store != nil {
		params.Store = oai.Bool(*req.Store)
	}
	if req.Truncation != "" {
		params.Truncation = responses.ResponseNewParamsTruncation(req.Truncation)
	}
	if req.Temperature != 0 {
		params.Temperature = oai.Float(req.Temperature)
	}
	for _, tool := range req.Tools {
		if tool.Type != respcli.ToolWebSearch {
			return params, errors.Errorf("unsupported tool '%s'", tool.Type)
		}
		params.Tools = append(params.Tools, responses.ToolUnionParam{
			OfWebSearchPreview: &responses.WebSearchToolParam{Type: responses.WebSearchToolTypeWebSearchPreview},
		})
	}
	if req.ToolChoice != "" {
		params.ToolChoice = responses.ResponseNewParamsToolChoiceUnion{
			OfToolChoiceMode: oai.Opt(responses.ToolChoiceOptions(req.ToolChoice)),
		}
	}
	if f := req.Format; f != nil {
		if f.Type != respcli.FormatJSONSchema {
			return params, errors.Errorf("unsupported text format '%s'", f.Type)
		}
		schema := map[string]any{}
		if f.Schema != nil {
			bs, err := f.Schema.MarshalJSON()
			if err != nil {
				return params, errors.Wrap(err, "marshaling schema")
			}
			if err := json.Unmarshal(bs, &schema); err != nil {
				return params, errors.Wrap(err, "decoding schema")
			}
		}
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   f.Name,
					Schema: schema,
					Strict: oai.Bool(f.Strict),
				},
			},
		}
	}
	return params, nil
}

// apiErr turns an API error into one that reads like the API's message.
func apiErr(err error) error {
	var oerr *oai.Error
	if !errors.As(err, &oerr) {
		return err
	}
	return errors.Errorf("bad status %d: %s", oerr.StatusCode, &apiError{Code: oerr.Code, Type: oerr.Type, Message: oerr.Message})
}

type responseBody struct {
	respcli.Response
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *apiError) String() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

type inputItem struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (i inputItem) message() respcli.Message {
	parts := make([]string, 0, len(i.Content))
	for _, c := range i.Content {
		if c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return respcli.Message{Role: i.Role, Content: strings.Join(parts, "\n")}
}
