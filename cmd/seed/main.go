// Command main runs the database seeder for Snapgram.
package main

import (
	"flag"
	"log"
	"sort"
	"strings"

	"snapgram/internal/config"
	"snapgram/internal/database"
	"snapgram/internal/seed"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	videoRatio := flag.Float64("video-ratio", 0.25, "Share of posts that carry video")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	preset := flag.String("preset", "", "Apply a named preset (small, demo, load)")
	presetFile := flag.String("preset-file", "", "YAML file with additional presets")
	sqlitePath := flag.String("sqlite", "", "Seed a SQLite file instead of the configured Postgres database")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	fast := flag.Bool("fast", false, "Hash the shared password at minimum bcrypt cost")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	presets := seed.BuiltInPresets()
	if *presetFile != "" {
		extra, err := seed.LoadPresetFile(*presetFile)
		if err != nil {
			log.Fatalf("Failed to load presets: %v", err)
		}
		for name, p := range extra {
			presets[name] = p
		}
	}
	var chosen seed.Preset
	if *preset != "" {
		p, ok := presets[*preset]
		if !ok {
			log.Fatalf("Unknown preset %q (available: %s)", *preset, presetNames(presets))
		}
		chosen = p
		log.Printf("Applying preset: %s (ignoring -users and -posts)", *preset)
	} else {
		log.Printf("Target: %d users, %d posts, clean=%v", *numUsers, *numPosts, *shouldClean)
	}

	db, err := open(*sqlitePath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *shouldClean && !*dryRun {
		if err := seed.Clean(db); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	s, err := seed.NewSeeder(db, seed.Options{SkipBcrypt: *fast, DryRun: *dryRun, RandSeed: *randSeed})
	if err != nil {
		log.Fatalf("❌ Seeder setup failed: %v", err)
	}

	if *preset != "" {
		if _, err := s.ApplyPreset(chosen); err != nil {
			log.Fatalf("❌ Preset seeding failed: %v", err)
		}
	} else {
		users, err := s.Users(*numUsers)
		if err != nil {
			log.Fatalf("❌ User seeding failed: %v", err)
		}
		if _, err := s.Posts(users, *numPosts, *videoRatio); err != nil {
			log.Fatalf("❌ Post seeding failed: %v", err)
		}
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s", seed.DefaultPassword)
}

func open(sqlitePath string) (*gorm.DB, error) {
	if sqlitePath != "" {
		db, err := gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		return db, database.AutoMigrate(db)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return database.Connect(cfg)
}

func presetNames(presets map[string]seed.Preset) string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
