package main

import (
	"github.com/joho/godotenv"

	"marktplaats-watcher/internal/cli"
)

func main() {
	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	cli.Execute()
}
