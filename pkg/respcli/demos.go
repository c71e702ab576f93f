package respcli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
)

const separator = "--------------------------------"

// Demos walks through the behaviour of the Responses API, printing what it
// gets back.
type Demos struct {
	R     Responder
	Model string

	// Turns bounds the follow-ups made by the truncation demo.
	Turns int
	// ShowUnstoredError makes the previous response demo try to continue an
	// unstored response.
	ShowUnstoredError bool

	out io.Writer
}

func NewDemos(r Responder, model string, out io.Writer) *Demos {
	return &Demos{
		R:     r,
		Model: model,
		Turns: 5,
		out:   out,
	}
}

// Names lists the demos Run accepts.
func (d *Demos) Names() []string {
	names := make([]string, 0, len(d.registry()))
	for name := range d.registry() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Demos) registry() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"basic":        d.Basic,
		"multiturn":    d.MultiTurn,
		"previous":     d.PreviousResponse,
		"truncation":   func(ctx context.Context) error { return d.Truncation(ctx, false) },
		"truncate":     func(ctx context.Context) error { return d.Truncation(ctx, true) },
		"instructions": d.Instructions,
		"nuances":      d.Nuances,
		"structured":   d.Structured,
		"websearch":    d.WebSearch,
	}
}

func (d *Demos) Run(ctx context.Context, name string) error {
	fn, ok := d.registry()[name]
	if !ok {
		return errors.Errorf("unknown demo '%s', try one of %v", name, d.Names())
	}
	return fn(ctx)
}

func (d *Demos) create(ctx context.Context, req *Request) (*Response, error) {
	if req.Model == "" {
		req.Model = d.Model
	}
	return d.R.CreateResponse(ctx, req)
}

// Basic makes a single call and shows each layer of the response.
func (d *Demos) Basic(ctx context.Context) error {
	resp, err := d.create(ctx, &Request{
		Input: []Message{UserMsg("Tell me a three sentence bedtime story about a unicorn.")},
	})
	if err != nil {
		return errors.Wrap(err, "creating response")
	}

	bs, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling response")
	}
	d.printf("%s\n%s\n", bs, separator)
	if len(resp.Output) > 0 {
		d.printf("%+v\n%s\n", resp.Output[0], separator)
		if len(resp.Output[0].Content) > 0 {
			d.printf("%+v\n%s\n", resp.Output[0].Content[0], separator)
			d.printf("%s\n%s\n", resp.Output[0].Content[0].Text, separator)
		}
	}
	d.printf("%s\n", resp.OutputText())
	return nil
}

// MultiTurn seeds a conversation by sending the whole history in one request.
func (d *Demos) MultiTurn(ctx context.Context) error {
	resp, err := d.create(ctx, &Request{
		Input: []Message{
			UserMsg("Write a one-sentence bedtime story about a unicorn."),
			{Role: RoleAssistant, Content: "Once upon a time, in a shimmering forest, a kind-hearted unicorn named Luna helped lost animals find their way home with her glittering horn."},
			UserMsg("What is the main character's name?"),
		},
	})
	if err != nil {
		return errors.Wrap(err, "creating response")
	}
	d.printf("%s\n", resp.OutputText())
	return nil
}

// PreviousResponse continues a stored response. The follow-up is not
// stored, so it cannot itself be continued.
func (d *Demos) PreviousResponse(ctx context.Context) error {
	first, err := d.create(ctx, &Request{
		Input: []Message{UserMsg("What is the capital of France?")},
	})
	if err != nil {
		return errors.Wrap(err, "creating first response")
	}
	d.printf("%s\n", first.OutputText())

	second, err := d.create(ctx, &Request{
		Input:              []Message{UserMsg("Now explain when it became known as the capital of France and if there were any other cities that were considered for the title.")},
		PreviousResponseID: first.ID,
		Store:              Bool(false),
	})
	if err != nil {
		return errors.Wrap(err, "creating second response")
	}
	d.printf("%s\n", second.OutputText())

	if !d.ShowUnstoredError {
		return nil
	}
	_, err = d.create(ctx, &Request{
		Input:              []Message{UserMsg("What is the capital of France?" + second.OutputText())},
		PreviousResponseID: second.ID,
	})
	if err == nil {
		return errors.New("continuing an unstored response unexpectedly succeeded")
	}
	d.printf("Continuing unstored response '%s' failed as expected: %v\n", second.ID, err)
	return nil
}

// Truncation keeps extending one conversation, printing the accumulated
// history after every turn, until Turns follow-ups were made or the backend
// refuses.
func (d *Demos) Truncation(ctx context.Context, truncate bool) error {
	truncation := TruncationDisabled
	if truncate {
		truncation = TruncationAuto
	}
	d.printf("\nTesting context limits with truncation %s...\n", truncation)

	current, err := d.create(ctx, &Request{
		Input: []Message{UserMsg("Tell me about the history of Paris in 2-3 sentences.")},
		Store: Bool(true),
	})
	if err != nil {
		return errors.Wrap(err, "creating initial response")
	}
	d.printf("\nInitial Response:\n%s\n", current.OutputText())

	count := 1
	for count <= d.Turns {
		next, err := d.create(ctx, &Request{
			Input:              []Message{UserMsg("Continue telling me more about Paris's history.")},
			PreviousResponseID: current.ID,
			Store:              Bool(true),
			Truncation:         truncation,
		})
		if err != nil {
			d.printf("\nStopped after %d responses: %v\n", count, err)
			return nil
		}
		current = next
		count++

		msgs, err := d.R.ListInputItems(ctx, current.ID)
		if err != nil {
			return errors.Wrap(err, "listing input items")
		}
		d.printf("\nConversation history:\n")
		for i, msg := range msgs {
			d.printf("%d. %s: %s\n", i+1, msg.Role, msg.Content)
		}
		d.printf("\nResponse %d:\n%s\n", count, current.OutputText())
	}
	d.printf("\nCompleted %d responses without hitting the context limit.\n", count)
	return nil
}

// Instructions shows that instructions apply to one response only while the
// conversation history carries over.
func (d *Demos) Instructions(ctx context.Context) error {
	d.printf("\n=== Demonstrating instruction handling with previous responses ===\n")

	initial, err := d.create(ctx, &Request{
		Input:        []Message{UserMsg("Write a haiku about Paris.")},
		Instructions: "Write only in haiku format.",
		Store:        Bool(true),
	})
	if err != nil {
		return errors.Wrap(err, "creating initial response")
	}
	d.printInstructions(initial)
	d.printf("\nFirst response (with haiku instruction):\n%s\n", initial.OutputText())

	second, err := d.create(ctx, &Request{
		Input:              []Message{UserMsg("Now describe what you wrote about Paris.")},
		Instructions:       "Write in prose format only.",
		PreviousResponseID: initial.ID,
		Store:              Bool(true),
	})
	if err != nil {
		return errors.Wrap(err, "creating second response")
	}
	d.printInstructions(second)
	d.printf("\nSecond response (with prose instruction):\n%s\n", second.OutputText())

	msgs, err := d.R.ListInputItems(ctx, second.ID)
	if err != nil {
		return errors.Wrap(err, "listing input items")
	}
	for i, msg := range msgs {
		d.printf("\nMessage %d:\nRole: %s\nContent: %s\n", i+1, msg.Role, msg.Content)
	}
	return nil
}

// Nuances chains three responses from an input holding two system messages
// plus instructions. The system messages stay in the input of every later
// response while the instructions are dropped after the first.
func (d *Demos) Nuances(ctx context.Context) error {
	d.printf("\n=== Exploring multiple instructions with previous responses ===\n")

	initial, err := d.create(ctx, &Request{
		Input: []Message{
			{Role: RoleSystem, Content: "You are a poetic writer."},
			{Role: RoleSystem, Content: "You must include sensory details."},
			UserMsg("Write about a garden."),
		},
		Instructions: "Write in short, vivid sentences.",
		Store:        Bool(true),
	})
	if err != nil {
		return errors.Wrap(err, "creating initial response")
	}
	if err := d.printStage(ctx, "Initial Response", initial); err != nil {
		return err
	}
	d.printf("\nFirst response (with multiple system messages and instruction):\n%s\n", initial.OutputText())

	second, err := d.create(ctx, &Request{
		Input:              []Message{UserMsg("Now describe the garden in winter.")},
		PreviousResponseID: initial.ID,
		Store:              Bool(true),
	})
	if err != nil {
		return errors.Wrap(err, "creating second response")
	}
	if err := d.printStage(ctx, "Second Response", second); err != nil {
		return err
	}
	d.printf("\nSecond response (using previous response, no new instructions):\n%s\n", second.OutputText())

	third, err := d.create(ctx, &Request{
		Input:              []Message{UserMsg("Describe the garden as if it were on fire.")},
		PreviousResponseID: second.ID,
		Store:              Bool(true),
	})
	if err != nil {
		return errors.Wrap(err, "creating third response")
	}
	if err := d.printStage(ctx, "Final Response", third); err != nil {
		return err
	}
	d.printf("\nThird response (using previous response):\n%s\n", third.OutputText())
	return nil
}

func (d *Demos) printStage(ctx context.Context, title string, resp *Response) error {
	d.printf("===================================================\n%s\n===================================================\n", title)
	d.printInstructions(resp)
	msgs, err := d.R.ListInputItems(ctx, resp.ID)
	if err != nil {
		return errors.Wrap(err, "listing input items")
	}
	d.printf("Inputs:\n")
	for i, msg := range msgs {
		d.printf("\nMessage %d:\nRole: %s\nContent: %s\n", i+1, msg.Role, msg.Content)
	}
	return nil
}

func (d *Demos) printInstructions(resp *Response) {
	instructions := resp.Instructions
	if instructions == "" {
		instructions = "No instructions"
	}
	d.printf("\nInspecting current conversation iteration instructions:\nInstructions: %s\n", instructions)
}

// Structured asks for output matching the MathReasoning schema and parses
// it.
func (d *Demos) Structured(ctx context.Context) error {
	format, err := JSONSchemaFormat("math_reasoning", MathReasoning{})
	if err != nil {
		return err
	}
	resp, err := d.create(ctx, &Request{
		Input: []Message{
			{Role: RoleSystem, Content: "Reason Mathematically"},
			{Role: RoleDeveloper, Content: "You are a helpful math tutor. Guide the user through the solution step by step."},
			UserMsg("how can I solve 8x + 7 = -23"),
		},
		Format: format,
	})
	if err != nil {
		return errors.Wrap(err, "creating response")
	}
	d.printInstructions(resp)

	msgs, err := d.R.ListInputItems(ctx, resp.ID)
	if err != nil {
		return errors.Wrap(err, "listing input items")
	}
	d.printf("Here is the input messages for the current response:\n")
	for _, msg := range msgs {
		d.printf("%+v\n", msg)
	}

	var reasoning MathReasoning
	if err := ParseOutput(resp, format, &reasoning); err != nil {
		return err
	}
	bs, err := json.MarshalIndent(reasoning, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling reasoning")
	}
	d.printf("%s\n", bs)
	return nil
}

// WebSearch lets the model decide whether to search the web, then asks a
// follow-up in the same conversation.
func (d *Demos) WebSearch(ctx context.Context) error {
	tools := []Tool{{Type: ToolWebSearch}}
	resp, err := d.create(ctx, &Request{
		Input:      []Message{UserMsg("What are the latest developments in quantum computing?")},
		Tools:      tools,
		ToolChoice: ToolChoiceAuto,
	})
	if err != nil {
		return errors.Wrap(err, "creating response")
	}
	d.printf("Response with web search results:\n%s\n", resp.OutputText())
	d.printCitations(resp)

	followUp, err := d.create(ctx, &Request{
		Input:              []Message{UserMsg("Can you explain more about quantum supremacy based on those developments?")},
		PreviousResponseID: resp.ID,
		Tools:              tools,
		ToolChoice:         ToolChoiceAuto,
	})
	if err != nil {
		return errors.Wrap(err, "creating follow-up")
	}
	d.printf("\nFollow-up response:\n%s\n", followUp.OutputText())
	d.printCitations(followUp)
	return nil
}

func (d *Demos) printCitations(resp *Response) {
	citations := resp.Citations()
	if len(citations) == 0 {
		return
	}
	d.printf("\nSources:\n")
	for i, c := range citations {
		d.printf("%d. %s (%s)\n", i+1, c.Title, c.URL)
	}
}

func (d *Demos) printf(format string, a ...any) {
	fmt.Fprintf(d.out, format, a...)
}
