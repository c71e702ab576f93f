package vectorstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/jaffee/respcli/pkg/respcli"
	"github.com/jaffee/respcli/pkg/upload"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

// Backend is a Service that files can also be uploaded to.
type Backend interface {
	Service
	upload.Remote
}

// SetupCmd creates a vector store, uploads files to it in parallel and
// records its ID.
type SetupCmd struct {
	Backend     string `help:"Where to create the store (openai or memory)."`
	Files       string `help:"Comma separated list of files to upload. Paths containing commas must be added with AddFiles."`
	Name        string `help:"Name of the new store. Prompted for if empty."`
	Yes         bool   `help:"Don't ask for confirmation."`
	Concurrency int    `help:"Maximum number of files uploaded at once."`
	Registry    string `help:"File the new store's ID is appended to."`
	Verbose     bool   `help:"Enables debug output."`

	backends map[string]Backend
	prompter respcli.Prompter
	extra    []string

	stdin  io.ReadCloser
	stdout io.Writer
	stderr io.Writer
}

func NewSetupCmd() *SetupCmd {
	return &SetupCmd{
		Backend:     "openai",
		Concurrency: upload.DefaultConcurrency,
		Registry:    DefaultRegistryPath,

		backends: make(map[string]Backend),

		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

func (cmd *SetupCmd) AddBackend(name string, b Backend) {
	cmd.backends[name] = b
}

func (cmd *SetupCmd) SetPrompter(p respcli.Prompter) {
	cmd.prompter = p
}

// AddFiles queues paths for upload alongside those in Files. They are taken
// as is, so they may contain commas.
func (cmd *SetupCmd) AddFiles(paths ...string) {
	cmd.extra = append(cmd.extra, paths...)
}

func (cmd *SetupCmd) paths() []string {
	return append(upload.SplitList(cmd.Files), cmd.extra...)
}

func (cmd *SetupCmd) Run() error {
	if err := cmd.checkConfig(); err != nil {
		return errors.Wrap(err, "checking config")
	}
	if cmd.prompter == nil {
		p, err := respcli.NewPrompter(respcli.PromptConfig{Stdin: cmd.stdin, Stdout: cmd.stdout, Stderr: cmd.stderr})
		if err != nil {
			return err
		}
		cmd.prompter = p
	}
	defer cmd.prompter.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	files := cmd.validFiles()
	if len(files) == 0 {
		cmd.out("\nNo valid files selected. Please try again.")
		return nil
	}
	cmd.out("\nSelected %d valid files:", len(files))
	for _, f := range files {
		cmd.out("- %s", filepath.Base(f))
	}
	if ok, err := cmd.confirm("\nProceed with these files? (y/n): "); err != nil {
		return err
	} else if !ok {
		cmd.out("Operation cancelled.")
		return nil
	}

	cmd.out("\n%s", strings.Repeat("=", 80))
	cmd.out("WARNING: Vector file storage costs $0.10 per GB per hour.")
	cmd.out("Files uploaded will incur storage costs based on their size.")
	cmd.out("%s\n", strings.Repeat("=", 80))

	name, err := cmd.storeName(len(files))
	if err != nil || name == "" {
		return err
	}
	return cmd.setup(ctx, name, files)
}

func (cmd *SetupCmd) validFiles() []string {
	paths := cmd.paths()
	for _, p := range paths {
		cmd.debugOut("Validating file: %s\n", p)
	}
	valid, excluded := upload.ValidateFiles(paths)
	if len(excluded) > 0 {
		cmd.out("\nWarning: The following files are not supported and will be skipped:")
		for _, ex := range excluded {
			cmd.out("- %s (%v)", ex.File(), ex.Err)
		}
	}
	return valid
}

// storeName asks for a name until one is given. An empty name means the user
// cancelled.
func (cmd *SetupCmd) storeName(nfiles int) (string, error) {
	name := cmd.Name
	for name == "" {
		line, err := cmd.prompter.Prompt("\nEnter a name for your vector store (or 'cancel' to abort): ")
		if err == io.EOF || err == respcli.ErrInterrupt {
			cmd.out("Vector store creation cancelled.")
			return "", nil
		} else if err != nil {
			return "", errors.Wrap(err, "reading store name")
		}
		if strings.EqualFold(line, "cancel") {
			cmd.out("Vector store creation cancelled.")
			return "", nil
		}
		if line == "" {
			cmd.out("Please enter a valid store name.")
		}
		name = line
	}

	ok, err := cmd.confirm(fmt.Sprintf("\nCreate vector store '%s' with %d files? (y/n): ", name, nfiles))
	if err != nil {
		return "", err
	} else if !ok {
		cmd.out("Vector store creation cancelled.")
		return "", nil
	}
	return name, nil
}

func (cmd *SetupCmd) setup(ctx context.Context, name string, files []string) error {
	b := cmd.backends[cmd.Backend]
	store, err := b.CreateStore(ctx, name)
	if err != nil {
		return errors.Wrap(err, "creating vector store")
	}
	cmd.out("Vector store created: {id: %s, name: %s, created_at: %s, file_count: %d}",
		store.ID, store.Name, store.CreatedAt.Format("2006-01-02 15:04:05"), store.FileCounts.Completed)

	cmd.out("%d files to process. Uploading in parallel...", len(files))
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(cmd.stderr),
		progressbar.OptionSetDescription("uploading"),
		progressbar.OptionShowCount(),
	)
	up := upload.New(b, upload.Config{
		Concurrency: cmd.Concurrency,
		Progress: func(res upload.Result) {
			_ = bar.Add(1)
			cmd.out("%s", res)
		},
	})
	report, uploadErr := up.UploadBatch(ctx, files, store.ID)
	_ = bar.Finish()
	if report == nil {
		return errors.Wrap(uploadErr, "uploading files")
	}

	cmd.printSummary(name, store.ID, report)
	if err := NewRegistry(cmd.Registry).Save(name, store.ID); err != nil {
		return errors.Wrap(err, "saving vector store id")
	}
	cmd.out("\nVector store ID saved to %s", cmd.Registry)
	return uploadErr
}

func (cmd *SetupCmd) printSummary(name, id string, report *upload.Report) {
	cmd.out("\nVector Store Creation Summary:")
	cmd.out("Store Name: %s", name)
	cmd.out("Store ID: %s", id)
	cmd.out("Files Uploaded Successfully: %d", report.Succeeded)
	cmd.out("Failed Uploads: %d", report.Failed)
	if len(report.Skipped) > 0 {
		cmd.out("Not Uploaded (interrupted): %d", len(report.Skipped))
	}
	if len(report.Errors) > 0 {
		cmd.out("\nErrors encountered:")
		for _, e := range report.Errors {
			cmd.out("- %s: %s", e.File, e.Error)
		}
	}
}

// confirm asks a yes/no question. Anything other than y is a no.
func (cmd *SetupCmd) confirm(question string) (bool, error) {
	if cmd.Yes {
		return true, nil
	}
	line, err := cmd.prompter.Prompt(question)
	if err == io.EOF || err == respcli.ErrInterrupt {
		return false, nil
	} else if err != nil {
		return false, errors.Wrap(err, "reading answer")
	}
	return strings.EqualFold(line, "y"), nil
}

func (cmd *SetupCmd) checkConfig() error {
	if _, ok := cmd.backends[cmd.Backend]; !ok {
		return errors.Errorf("unknown backend '%s'", cmd.Backend)
	}
	if len(cmd.paths()) == 0 {
		return errors.New("need at least one file")
	}
	return nil
}

// out writes output back to the user.
func (cmd *SetupCmd) out(format string, a ...any) {
	fmt.Fprintf(cmd.stdout, format+"\n", a...)
}

// debugOut writes to stderr if the verbose flag is set.
func (cmd *SetupCmd) debugOut(format string, a ...any) {
	if !cmd.Verbose {
		return
	}
	fmt.Fprintf(cmd.stderr, format, a...)
}
