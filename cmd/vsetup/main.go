package main

import (
	"log"

	"github.com/jaffee/commandeer"
	"github.com/jaffee/respcli/pkg/openai"
	"github.com/jaffee/respcli/pkg/vectorstore"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Overload()

	flags := NewFlags()
	err := commandeer.LoadEnv(flags, "", func(a interface{}) error { return nil })
	if err != nil {
		log.Fatal(err)
	}

	cmd := flags.Cmd
	cmd.AddBackend("openai", openai.NewClient(flags.OpenAI))
	cmd.AddBackend("memory", vectorstore.NewMemory())
	if err := cmd.Run(); err != nil {
		log.Fatal(err)
	}
}

func NewFlags() *Flags {
	return &Flags{
		OpenAI: openai.NewConfig(),
		Cmd:    *vectorstore.NewSetupCmd(),
	}
}

type Flags struct {
	OpenAI openai.Config        `flag:"!embed"`
	Cmd    vectorstore.SetupCmd `flag:"!embed"`
}
