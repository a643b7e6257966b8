package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/corpora-labs/corpora-cli/internal/adapters/driving/cli"
	"github.com/corpora-labs/corpora-cli/internal/app"
)

func main() {
	// Optional .env for provider credentials (OPENAI_API_KEY etc.).
	_ = godotenv.Load()

	a, err := app.New(context.Background(), os.Getenv("CORPORA_CONFIG_DIR"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "corpora: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	cli.SetServices(a.Services())
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
