package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jaffee/commandeer"
	"github.com/jaffee/respcli/pkg/openai"
	"github.com/jaffee/respcli/pkg/respcli"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

func main() {
	_ = godotenv.Overload()

	flags := NewFlags()
	err := commandeer.LoadEnv(flags, "", func(a interface{}) error { return nil })
	if err != nil {
		log.Fatal(err)
	}
	if err := flags.Run(); err != nil {
		log.Fatal(err)
	}
}

func NewFlags() *Flags {
	return &Flags{
		OpenAI:  openai.NewConfig(),
		Demo:    "basic",
		Backend: "openai",
		Model:   "gpt-4o-mini",
		Turns:   5,
	}
}

type Flags struct {
	OpenAI openai.Config `flag:"!embed"`

	Demo              string `help:"Demo to run, or 'all'."`
	Backend           string `help:"openai or echo."`
	Model             string `help:"Model used by the demos."`
	Turns             int    `help:"Follow-up turns made by the truncation demos."`
	ShowUnstoredError bool   `help:"Also continue an unstored response to show the error."`
}

func (f *Flags) Run() error {
	var r respcli.Responder
	switch f.Backend {
	case "openai":
		r = openai.NewClient(f.OpenAI)
	case "echo":
		r = &respcli.Echo{ContextLimit: 8}
	default:
		return errors.Errorf("unknown backend '%s'", f.Backend)
	}

	demos := respcli.NewDemos(r, f.Model, os.Stdout)
	demos.Turns = f.Turns
	demos.ShowUnstoredError = f.ShowUnstoredError

	names := []string{f.Demo}
	if f.Demo == "all" {
		names = demos.Names()
	}
	ctx := context.Background()
	for _, name := range names {
		fmt.Printf("\n=== %s ===\n", strings.ToUpper(name))
		if err := demos.Run(ctx, name); err != nil {
			return errors.Wrapf(err, "running %s", name)
		}
	}
	return nil
}
