package main

import (
	"log"

	"github.com/jaffee/commandeer"
	"github.com/jaffee/respcli/pkg/aws"
	"github.com/jaffee/respcli/pkg/ollama"
	"github.com/jaffee/respcli/pkg/openai"
	"github.com/jaffee/respcli/pkg/respcli"
	"github.com/joho/godotenv"
)

func main() {
	// a missing .env is fine, the environment may already be set
	_ = godotenv.Overload()

	flags := NewFlags()
	err := commandeer.LoadEnv(flags, "", func(a interface{}) error { return nil })
	if err != nil {
		log.Fatal(err)
	}

	cmd := flags.Cmd
	cmd.AddBackend("openai", openai.NewClient(flags.OpenAI))
	cmd.AddBackend("echo", &respcli.Echo{})
	cmd.AddBackend("ollama", ollama.NewClient(flags.Ollama))
	if cmd.Backend == "bedrock" {
		ai, err := aws.NewAI(flags.Bedrock)
		if err != nil {
			log.Fatal(err)
		}
		cmd.AddBackend("bedrock", ai)
	}
	if err := cmd.Run(); err != nil {
		log.Fatal(err)
	}
}

func NewFlags() *Flags {
	return &Flags{
		OpenAI:  openai.NewConfig(),
		Ollama:  ollama.NewConfig(),
		Bedrock: aws.NewConfig(),
		Cmd:     *respcli.NewChatCmd(),
	}
}

type Flags struct {
	OpenAI  openai.Config   `flag:"!embed"`
	Ollama  ollama.Config   `flag:"!embed"`
	Bedrock aws.Config      `flag:"!embed"`
	Cmd     respcli.ChatCmd `flag:"!embed"`
}
