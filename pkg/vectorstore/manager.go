package vectorstore

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jaffee/respcli/pkg/respcli"
	"github.com/pkg/errors"
)

const menu = `
=== Vector Store Manager ===
1. List vector stores
2. Search vector stores
3. Delete a vector store
4. List files in a vector store
5. Delete a file from a vector store
6. Exit`

// ManagerCmd is an interactive menu for inspecting and deleting vector
// stores and their files.
type ManagerCmd struct {
	Backend string `help:"Which service to manage (openai or memory)."`

	services map[string]Service
	prompter respcli.Prompter

	stdin  io.ReadCloser
	stdout io.Writer
	stderr io.Writer
}

func NewManagerCmd() *ManagerCmd {
	return &ManagerCmd{
		Backend:  "openai",
		services: make(map[string]Service),

		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

func (cmd *ManagerCmd) AddService(name string, s Service) {
	cmd.services[name] = s
}

func (cmd *ManagerCmd) SetPrompter(p respcli.Prompter) {
	cmd.prompter = p
}

func (cmd *ManagerCmd) Run() error {
	svc, ok := cmd.services[cmd.Backend]
	if !ok {
		return errors.Errorf("unknown backend '%s'", cmd.Backend)
	}
	if cmd.prompter == nil {
		p, err := respcli.NewPrompter(respcli.PromptConfig{Stdin: cmd.stdin, Stdout: cmd.stdout, Stderr: cmd.stderr})
		if err != nil {
			return err
		}
		cmd.prompter = p
	}
	defer cmd.prompter.Close()
	defer cmd.out("Thank you for using Vector Store Manager!")

	ctx := context.Background()
	for {
		cmd.out(menu)
		choice, err := cmd.prompter.Prompt("Enter your choice: ")
		if err == io.EOF || err == respcli.ErrInterrupt {
			cmd.out("\nGracefully shutting down...")
			return nil
		} else if err != nil {
			return errors.Wrap(err, "reading choice")
		}

		switch choice {
		case "1":
			err = cmd.listStores(ctx, svc)
		case "2":
			err = cmd.searchStores(ctx, svc)
		case "3":
			err = cmd.deleteStore(ctx, svc)
		case "4":
			err = cmd.listFiles(ctx, svc)
		case "5":
			err = cmd.deleteFile(ctx, svc)
		case "6":
			cmd.out("Exiting the manager.")
			return nil
		default:
			cmd.out("Invalid choice. Please try again.")
		}
		if cause := errors.Cause(err); cause == io.EOF || cause == respcli.ErrInterrupt {
			cmd.out("\nGracefully shutting down...")
			return nil
		} else if err != nil {
			cmd.errOut(err, "An error occurred")
		}
	}
}

func (cmd *ManagerCmd) listStores(ctx context.Context, svc Service) error {
	stores, err := svc.ListStores(ctx)
	if err != nil {
		return err
	}
	cmd.out("The total number of vector stores is %d", len(stores))
	cmd.out("Vector Stores:")
	for i, s := range stores {
		cmd.out("%d. ID: %s - Name: %s - Size: %d", i+1, s.ID, s.Name, s.FileCounts.Total)
	}
	return nil
}

func (cmd *ManagerCmd) searchStores(ctx context.Context, svc Service) error {
	term, err := cmd.prompter.Prompt("Enter search term: ")
	if err != nil {
		return err
	}
	stores, err := svc.ListStores(ctx)
	if err != nil {
		return err
	}
	matches := FindStores(stores, term)
	if len(matches) == 0 {
		cmd.out("\nNo vector stores found matching '%s'", term)
		return nil
	}
	cmd.out("\nFound %d matching vector store(s):", len(matches))
	for i, s := range matches {
		cmd.out("%d. ID: %s", i+1, s.ID)
		cmd.out("   Name: %s", s.Name)
		cmd.out("   Files: %d", s.FileCounts.Total)
		cmd.out("   Created: %s", s.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func (cmd *ManagerCmd) deleteStore(ctx context.Context, svc Service) error {
	id, err := cmd.prompter.Prompt("Enter the vector store ID to delete: ")
	if err != nil {
		return err
	}
	if err := svc.DeleteStore(ctx, id); err != nil {
		return err
	}
	cmd.out("Deleted vector store: %s", id)
	return nil
}

func (cmd *ManagerCmd) listFiles(ctx context.Context, svc Service) error {
	id, err := cmd.prompter.Prompt("Enter the vector store ID to view files: ")
	if err != nil {
		return err
	}
	files, err := svc.ListFiles(ctx, id)
	if err != nil {
		return err
	}
	cmd.out("Files in vector store '%s':", id)
	for i, f := range files {
		cmd.out("%d. ID: %s (%s)", i+1, f.ID, f.Status)
	}
	return nil
}

func (cmd *ManagerCmd) deleteFile(ctx context.Context, svc Service) error {
	storeID, err := cmd.prompter.Prompt("Enter the vector store ID: ")
	if err != nil {
		return err
	}
	fileID, err := cmd.prompter.Prompt("Enter the file ID to delete: ")
	if err != nil {
		return err
	}
	if err := svc.DeleteFile(ctx, storeID, fileID); err != nil {
		return err
	}
	cmd.out("Deleted file: %s", fileID)
	return nil
}

// out writes output back to the user.
func (cmd *ManagerCmd) out(format string, a ...any) {
	fmt.Fprintf(cmd.stdout, format+"\n", a...)
}

// errOut wraps the error and writes it to the user on stderr.
func (cmd *ManagerCmd) errOut(err error, format string, a ...any) {
	fmt.Fprintf(cmd.stderr, "%s: %v\n", fmt.Sprintf(format, a...), err.Error())
}
