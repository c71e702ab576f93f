package respcli

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/wader/readline"
)

// Prompter asks the user for one line of input. It returns io.EOF once the
// user has closed their input and ErrInterrupt on Ctrl-C.
type Prompter interface {
	Prompt(label string) (string, error)
	Close() error
}

var ErrInterrupt = readline.ErrInterrupt

type PromptConfig struct {
	// HistoryFile is the name of the history file within the user's home
	// directory. No history is kept if empty.
	HistoryFile string

	Stdin  io.ReadCloser
	Stdout io.Writer
	Stderr io.Writer
}

type readlinePrompter struct {
	rl *readline.Instance
}

// NewPrompter returns a Prompter backed by readline.
func NewPrompter(conf PromptConfig) (Prompter, error) {
	rlconf := &readline.Config{
		HistoryLimit: 1000000,

		Stdin:  conf.Stdin,
		Stdout: conf.Stdout,
		Stderr: conf.Stderr,
	}
	if conf.HistoryFile != "" {
		rlconf.HistoryFile = getHistoryFilePath(conf.HistoryFile)
	}
	rl, err := readline.NewEx(rlconf)
	if err != nil {
		return nil, errors.Wrap(err, "setting up readline")
	}
	return &readlinePrompter{rl: rl}, nil
}

func (p *readlinePrompter) Prompt(label string) (string, error) {
	p.rl.SetPrompt(label)
	line, err := p.rl.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *readlinePrompter) Close() error {
	return p.rl.Close()
}

func getHistoryFilePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		// if we can't get a home dir, we'll use the local directory
		return name
	}
	return filepath.Join(home, name)
}

// ScriptedPrompter replays canned answers and then reports io.EOF. It is
// useful for driving interactive commands non-interactively.
type ScriptedPrompter struct {
	Answers []string
	// Labels records every prompt shown.
	Labels []string
}

func (s *ScriptedPrompter) Prompt(label string) (string, error) {
	s.Labels = append(s.Labels, label)
	if len(s.Answers) == 0 {
		return "", io.EOF
	}
	ans := s.Answers[0]
	s.Answers = s.Answers[1:]
	return ans, nil
}

func (s *ScriptedPrompter) Close() error { return nil }
