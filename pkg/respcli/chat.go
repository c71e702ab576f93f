package respcli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const (
	forcedTurnEvery  = 3
	forcedTurnPrompt = "Chatbot asks: Any specific topic you'd like to explore? > "
)

// ChatCmd is a continuous chatbot. Each turn continues the previous response
// on the server so the full history never has to be resent.
type ChatCmd struct {
	Backend      string `help:"Which backend to talk to (openai, echo, bedrock, ollama)."`
	Model        string `help:"Model name passed to the backend."`
	Instructions string `help:"Instructions sent with every turn."`
	Truncation   string `help:"Truncation strategy, auto or disabled."`
	Verbose      bool   `help:"Enables debug output."`

	backends map[string]Responder
	prompter Prompter

	turn       int
	previousID string

	stdin  io.ReadCloser
	stdout io.Writer
	stderr io.Writer
}

func NewChatCmd() *ChatCmd {
	return &ChatCmd{
		Backend:    "openai",
		Model:      "gpt-4o-mini",
		Truncation: TruncationDisabled,

		backends: make(map[string]Responder),

		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

func (cmd *ChatCmd) AddBackend(name string, r Responder) {
	cmd.backends[name] = r
}

// SetPrompter replaces the readline prompter, e.g. with a ScriptedPrompter.
func (cmd *ChatCmd) SetPrompter(p Prompter) {
	cmd.prompter = p
}

func (cmd *ChatCmd) Run() error {
	if err := cmd.checkConfig(); err != nil {
		return errors.Wrap(err, "checking config")
	}
	if cmd.prompter == nil {
		p, err := NewPrompter(PromptConfig{
			HistoryFile: ".respcli_history",
			Stdin:       cmd.stdin,
			Stdout:      cmd.stdout,
			Stderr:      cmd.stderr,
		})
		if err != nil {
			return err
		}
		cmd.prompter = p
	}
	defer cmd.prompter.Close()

	ctx := context.Background()
	cmd.out("Welcome to the Continuous Chatbot! Type 'quit' to exit.\n")

	for {
		// only sent messages count as turns
		label := "You: "
		if (cmd.turn+1)%forcedTurnEvery == 0 {
			cmd.out("\n--- Forced Turn ---")
			label = forcedTurnPrompt
		}

		line, err := cmd.prompter.Prompt(label)
		if err == ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "reading line")
		} else if len(line) == 0 {
			continue
		}
		if strings.EqualFold(line, "quit") {
			cmd.out("Exiting chatbot. Goodbye!")
			break
		}
		if isMeta(line) {
			cmd.handleMeta(ctx, line)
			continue
		}

		cmd.turn++
		cmd.out("Chatbot is thinking...")
		resp, err := cmd.send(ctx, line)
		if err != nil {
			cmd.errOut(err, "\nAn error occurred")
			cmd.previousID = ""
			continue
		}
		cmd.debugOut("%+v\n", resp)
		cmd.out("Chatbot: %s", resp.OutputText())
		cmd.previousID = resp.ID
	}

	return nil
}

func (cmd *ChatCmd) send(ctx context.Context, line string) (*Response, error) {
	cmd.debugOut("sending: '%s' continuing from '%s'\n", line, cmd.previousID)
	return cmd.backend().CreateResponse(ctx, &Request{
		Model:              cmd.Model,
		Input:              []Message{UserMsg(line)},
		Instructions:       cmd.Instructions,
		PreviousResponseID: cmd.previousID,
		Store:              Bool(true),
		Truncation:         cmd.Truncation,
	})
}

func (cmd *ChatCmd) backend() Responder {
	return cmd.backends[cmd.Backend]
}

func (cmd *ChatCmd) handleMeta(ctx context.Context, line string) {
	line = strings.TrimSpace(line)
	name, arg, _ := strings.Cut(line, " ")
	switch name {
	case `\reset`:
		cmd.previousID = ""
	case `\messages`:
		cmd.printMessages(ctx)
	case `\config`:
		cmd.printConfig()
	case `\models`:
		cmd.printModels(ctx)
	case `\instructions`:
		cmd.Instructions = strings.TrimSpace(arg)
	default:
		cmd.errMsg("Unknown meta command '%s'", line)
	}
}

func (cmd *ChatCmd) printMessages(ctx context.Context) {
	if cmd.previousID == "" {
		return
	}
	msgs, err := cmd.backend().ListInputItems(ctx, cmd.previousID)
	if err != nil {
		cmd.errOut(err, "listing messages")
		return
	}
	for _, msg := range msgs {
		cmd.out("%9s: %s", msg.Role, msg.Content)
	}
}

func (cmd *ChatCmd) printModels(ctx context.Context) {
	lister, ok := cmd.backend().(ModelLister)
	if !ok {
		cmd.errMsg("backend '%s' can't list models", cmd.Backend)
		return
	}
	models, err := lister.ListModels(ctx)
	if err != nil {
		cmd.errOut(err, "listing models")
		return
	}
	sort.Strings(models)
	for _, m := range models {
		cmd.out("%s", m)
	}
}

// isMeta returns true if the line is a meta command
func isMeta(line string) bool {
	return line[0] == '\\'
}

// out writes output back to the user.
func (cmd *ChatCmd) out(format string, a ...any) {
	fmt.Fprintf(cmd.stdout, format+"\n", a...)
}

// errOut wraps the error and writes it to the user on stderr.
func (cmd *ChatCmd) errOut(err error, format string, a ...any) {
	fmt.Fprintf(cmd.stderr, "%s: %v\n", fmt.Sprintf(format, a...), err.Error())
}

// errMsg writes the message to the user on stderr.
func (cmd *ChatCmd) errMsg(format string, a ...any) {
	fmt.Fprintf(cmd.stderr, format+"\n", a...)
}

// checkConfig ensures the command configuration is valid before proceeding.
func (cmd *ChatCmd) checkConfig() error {
	if _, ok := cmd.backends[cmd.Backend]; !ok {
		return errors.Errorf("unknown backend '%s'", cmd.Backend)
	}
	switch cmd.Truncation {
	case TruncationAuto, TruncationDisabled:
	default:
		return errors.Errorf("truncation must be '%s' or '%s'", TruncationAuto, TruncationDisabled)
	}
	return nil
}

// debugOut writes to stderr if the verbose flag is set.
func (cmd *ChatCmd) debugOut(format string, a ...any) {
	if !cmd.Verbose {
		return
	}
	fmt.Fprintf(cmd.stderr, format, a...)
}

func (cmd *ChatCmd) printConfig() {
	fmt.Fprintf(cmd.stderr, "Backend: %s\n", cmd.Backend)
	fmt.Fprintf(cmd.stderr, "Model: %s\n", cmd.Model)
	fmt.Fprintf(cmd.stderr, "Instructions: %s\n", cmd.Instructions)
	fmt.Fprintf(cmd.stderr, "Truncation: %s\n", cmd.Truncation)
	fmt.Fprintf(cmd.stderr, "Verbose: %v\n", cmd.Verbose)
}
