package main

import (
	"github.com/joho/godotenv"

	"aulabot/cmd"
)

func main() {
	// Credentials usually live in .env; a missing file is fine.
	_ = godotenv.Load()
	cmd.Execute()
}
