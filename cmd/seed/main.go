// Command main runs the database seeder for Pictogram.
package main

import (
	"flag"
	"log"

	"pictogram/internal/config"
	"pictogram/internal/database"
	"pictogram/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Hash the shared password with the minimum bcrypt cost")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = time based)")
	flag.Parse()

	log.Printf("Target: %d users, %d posts, clean=%v", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	s, err := seed.NewSeeder(db, seed.Options{FastHash: *fast, Seed: *randSeed})
	if err != nil {
		log.Fatalf("Seeder init failed: %v", err)
	}

	res, err := s.Run(*numUsers, *numPosts, *shouldClean)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d follows, %d posts, %d likes, %d comments, %d stories",
		res.Users, res.Follows, res.Posts, res.Likes, res.Comments, res.Stories)
	log.Printf("All seeded users share the password: %s", seed.DefaultPassword)
}
