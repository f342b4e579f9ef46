package main

import (
	"log"

	"github.com/MrSnakeDoc/antenna/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ antenna failed to start: %v", err)
	}
}
