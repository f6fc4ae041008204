// Command seed populates a development database with fake users, groups and
// conversation history.
package main

import (
	"flag"
	"log"

	"greenline/internal/config"
	"greenline/internal/database"
	"greenline/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "number of users to create")
	numGroups := flag.Int("groups", 6, "number of groups to create")
	perConv := flag.Int("messages", 12, "messages per conversation")
	clean := flag.Bool("clean", false, "delete existing data first")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Seed(db, seed.Options{
		NumUsers:        *numUsers,
		NumGroups:       *numGroups,
		MessagesPerConv: *perConv,
		ShouldClean:     *clean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
