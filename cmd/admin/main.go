// Package main provides admin management utilities for Snapgram.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"snapgram/internal/cache"
	"snapgram/internal/config"
	"snapgram/internal/database"
	"snapgram/internal/models"
	"snapgram/internal/repository"
	"snapgram/internal/service"
)

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <user_id>      - Promote user to admin")
	fmt.Println("  go run ./cmd/admin demote <user_id>       - Demote user from admin")
	fmt.Println("  go run ./cmd/admin list-admins            - List all admins")
	fmt.Println("  go run ./cmd/admin verify <user_id>       - Grant the verified badge")
	fmt.Println("  go run ./cmd/admin unverify <user_id>     - Remove the verified badge")
	fmt.Println("  go run ./cmd/admin reports                - List unreviewed reports")
}

type admin struct {
	users   repository.UserRepository
	svc     *service.UserService
	reports repository.ReportRepository
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Flag changes must not be masked by cached user records.
	cache.InitRedis(cfg.RedisURL)

	users := repository.NewUserRepository(db)
	a := admin{
		users: users,
		svc: service.NewUserService(users, repository.NewFollowRepository(db), repository.NewPostRepository(db),
			service.NewMediaService(cfg), cfg.AvatarMaxDimension),
		reports: repository.NewReportRepository(db),
	}
	ctx := context.Background()

	command := os.Args[1]
	needsID := map[string]bool{"promote": true, "demote": true, "verify": true, "unverify": true}
	var userID uint
	if needsID[command] {
		if len(os.Args) < 3 {
			fmt.Printf("Usage: go run ./cmd/admin %s <user_id>\n", command)
			os.Exit(1)
		}
		id, err := strconv.ParseUint(os.Args[2], 10, 32)
		if err != nil || id == 0 {
			fmt.Printf("Invalid user ID %q\n", os.Args[2])
			os.Exit(1)
		}
		userID = uint(id)
	}

	switch command {
	case "promote":
		a.setFlag(ctx, userID, "is_admin", true, "promoted to admin")
	case "demote":
		a.setFlag(ctx, userID, "is_admin", false, "demoted from admin")
	case "verify":
		a.setFlag(ctx, userID, "is_verified", true, "verified")
	case "unverify":
		a.setFlag(ctx, userID, "is_verified", false, "unverified")
	case "list-admins":
		a.listAdmins(ctx)
	case "reports":
		a.listReports(ctx)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func (a admin) setFlag(ctx context.Context, userID uint, column string, value bool, verb string) {
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			fmt.Printf("User with ID %d not found\n", userID)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}

	current := user.IsAdmin
	if column == "is_verified" {
		current = user.IsVerified
	}
	if current == value {
		fmt.Printf("User %s (ID: %d) is already %s\n", user.Username, user.ID, verb)
		return
	}

	if column == "is_admin" {
		err = a.svc.SetAdmin(ctx, user.ID, value)
	} else {
		err = a.svc.SetVerified(ctx, user.ID, value)
	}
	if err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}
	cache.InvalidateUser(ctx, user.ID, user.Username)

	fmt.Printf("✅ Successfully %s %s (ID: %d)\n", verb, user.Username, user.ID)
}

func (a admin) listAdmins(ctx context.Context) {
	admins, err := a.svc.ListAdmins(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}

	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return
	}

	fmt.Println("\n📋 Current Admins:")
	fmt.Println("─────────────────────────────────────")
	for _, u := range admins {
		fmt.Printf("ID: %d | Username: %s | Email: %s\n", u.ID, u.Username, u.Email)
	}
	fmt.Println("─────────────────────────────────────")
}

func (a admin) listReports(ctx context.Context) {
	pending := false
	reports, err := a.reports.List(ctx, &pending, 100, 0)
	if err != nil {
		log.Fatalf("Failed to fetch reports: %v", err)
	}

	if len(reports) == 0 {
		fmt.Println("No pending reports")
		return
	}

	fmt.Println("\n🚩 Pending Reports:")
	fmt.Println("─────────────────────────────────────")
	for _, r := range reports {
		target := "-"
		switch {
		case r.ReportedPostID != nil:
			target = fmt.Sprintf("post %d", *r.ReportedPostID)
		case r.ReportedUserID != nil:
			target = fmt.Sprintf("user %d", *r.ReportedUserID)
		}
		fmt.Printf("ID: %d | %s | by %s | %s | %s\n", r.ID, r.Reason, r.Reporter.Username, target, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Println("─────────────────────────────────────")
}
