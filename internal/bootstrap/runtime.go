// Package bootstrap wires the process-wide runtime dependencies.
package bootstrap

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strings"

	"snapgram/internal/cache"
	"snapgram/internal/config"
	"snapgram/internal/database"
	"snapgram/internal/models"
	"snapgram/internal/observability"
	"snapgram/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultRootUsername = "snapgram_root"
	defaultRootEmail    = "root@snapgram.local"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedPreset names a built-in seed preset applied to an empty database.
	SeedPreset string
}

// InitRuntime connects to the database and Redis, then runs the optional
// development bootstrap steps. The Redis client is nil when unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := observability.RegisterQueryMetrics(db); err != nil {
		slog.Warn("query metrics unavailable", "error", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureDevRootAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedPreset != "" {
		if err := seedIfEmpty(db, opts.SeedPreset); err != nil {
			return nil, nil, fmt.Errorf("failed to seed preset %s: %w", opts.SeedPreset, err)
		}
	}

	return db, r, nil
}

// seedIfEmpty applies a built-in preset unless posts already exist.
func seedIfEmpty(db *gorm.DB, name string) error {
	preset, ok := seed.BuiltInPresets()[name]
	if !ok {
		return fmt.Errorf("unknown preset %q", name)
	}
	var posts int64
	if err := db.Model(&models.Post{}).Count(&posts).Error; err != nil {
		return err
	}
	if posts > 0 {
		log.Printf("skipping seed preset %s: database already has %d posts", name, posts)
		return nil
	}
	s, err := seed.NewSeeder(db, seed.Options{})
	if err != nil {
		return err
	}
	_, err = s.ApplyPreset(preset)
	return err
}

func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.ToLower(strings.TrimSpace(cfg.DevRootUsername))
	if username == "" {
		username = defaultRootUsername
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = defaultRootEmail
	}
	password := cfg.DevRootPassword
	if password == "" {
		return errors.New("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.First(&root, 1).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				ID:         1,
				Username:   username,
				Email:      email,
				Password:   string(hashedPassword),
				FullName:   "Snapgram Root",
				IsAdmin:    true,
				IsVerified: true,
			}
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
		case findErr != nil:
			return findErr
		default:
			updates := map[string]any{"is_admin": true}
			if cfg.DevRootForceCredentials {
				updates["username"] = username
				updates["email"] = email
				updates["password"] = string(hashedPassword)
			}
			if err := tx.Model(&models.User{}).Where("id = ?", 1).Updates(updates).Error; err != nil {
				return err
			}
			cache.InvalidateUser(tx.Statement.Context, root.ID, root.Username)
		}

		// Explicit ID inserts leave the postgres sequence behind.
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec(`
				SELECT setval(
					pg_get_serial_sequence('users', 'id'),
					GREATEST((SELECT COALESCE(MAX(id), 1) FROM users), 1),
					true
				)
			`).Error; err != nil {
				return fmt.Errorf("failed to reset users sequence: %w", err)
			}
		}

		return nil
	}); err != nil {
		return err
	}

	log.Printf("development root admin bootstrap ensured for user ID 1 (%s)", email)
	return nil
}
