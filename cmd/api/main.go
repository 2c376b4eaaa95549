package main

import (
	"context"
	"log"
	"os"

	"github.com/notesapp/core/cmd/api/commands"
)

func main() {
	if err := commands.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
