package vectorstore

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jaffee/respcli/pkg/respcli"
	"github.com/pkg/errors"
)

// TeardownCmd deletes a single vector store.
type TeardownCmd struct {
	Backend string `help:"Which service the store lives in (openai or memory)."`
	StoreID string `flag:"store-id" help:"ID of the store to delete. Prompted for if empty."`

	services map[string]Service
	prompter respcli.Prompter

	stdin  io.ReadCloser
	stdout io.Writer
}

func NewTeardownCmd() *TeardownCmd {
	return &TeardownCmd{
		Backend:  "openai",
		services: make(map[string]Service),

		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
}

func (cmd *TeardownCmd) AddService(name string, s Service) {
	cmd.services[name] = s
}

func (cmd *TeardownCmd) SetPrompter(p respcli.Prompter) {
	cmd.prompter = p
}

func (cmd *TeardownCmd) Run() error {
	svc, ok := cmd.services[cmd.Backend]
	if !ok {
		return errors.Errorf("unknown backend '%s'", cmd.Backend)
	}

	id := cmd.StoreID
	if id == "" {
		if cmd.prompter == nil {
			p, err := respcli.NewPrompter(respcli.PromptConfig{Stdin: cmd.stdin, Stdout: cmd.stdout})
			if err != nil {
				return err
			}
			cmd.prompter = p
		}
		defer cmd.prompter.Close()
		line, err := cmd.prompter.Prompt("Please enter the vector store ID to delete (e.g. vs_abc123): ")
		if err != nil {
			return errors.Wrap(err, "reading vector store id")
		}
		id = line
	}

	if err := ValidateStoreID(id); err != nil {
		return err
	}
	if err := svc.DeleteStore(context.Background(), id); err != nil {
		return errors.Wrap(err, "deleting vector store")
	}
	fmt.Fprintf(cmd.stdout, "Successfully deleted vector store with ID: %s\n", id)
	return nil
}
