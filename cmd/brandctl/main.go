package main

import (
	"os"

	"brandwatch/internal/cli"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
