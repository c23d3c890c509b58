package main

import (
	"os"

	"github.com/pixil98/go-gamesync/cmd/syncctl/command"
)

func main() {
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
