package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"wikistore/internal/cli"
)

func main() {
	_ = godotenv.Load()

	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "wikistore: %v\n", err)
		os.Exit(1)
	}
}
