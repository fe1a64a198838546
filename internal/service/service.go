// Package service holds the application's business rules. Every operation
// takes the acting user explicitly.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"snapgram/internal/models"
	"snapgram/internal/repository"
)

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

// Publisher delivers a serialized event to one user's live channel.
type Publisher interface {
	PublishUser(ctx context.Context, userID uint, payload string) error
}

// NotificationSender persists a notification and pushes it live.
type NotificationSender interface {
	Notify(ctx context.Context, in NotifyInput) (*models.Notification, error)
}

// Pagination defaults.
const (
	DefaultFeedPageSize    = 10
	DefaultExplorePageSize = 20
	MaxPageSize            = 100
	SearchLimit            = 20
	NotificationListLimit  = 50
)

// Page describes a 1-based page request.
type Page struct {
	Page    int
	PerPage int
}

func (p Page) normalize(defaultPerPage int) Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > MaxPageSize {
		p.PerPage = MaxPageSize
	}
	return p
}

func (p Page) offset() int { return (p.Page - 1) * p.PerPage }

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

var mentionPattern = regexp.MustCompile(`(?:^|[^\w.])@([A-Za-z0-9._]{3,30})`)

// extractMentions returns the distinct lowercased usernames mentioned in text.
func extractMentions(text string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		name := strings.ToLower(strings.TrimRight(m[1], "."))
		if _, ok := seen[name]; ok || name == "" {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// notifyMentions sends a mention notification to every existing user
// @mentioned in text other than the actor. Failures are logged only.
func notifyMentions(
	ctx context.Context, users repository.UserRepository, notifier NotificationSender,
	actorID, postID uint, text, where string,
) {
	if notifier == nil || users == nil {
		return
	}
	names := extractMentions(text)
	if len(names) == 0 {
		return
	}
	actor, err := users.GetByID(ctx, actorID)
	if err != nil {
		slog.WarnContext(ctx, "mention lookup failed", "error", err)
		return
	}
	for _, name := range names {
		target, err := users.GetByUsername(ctx, name)
		if err != nil || target == nil || target.ID == actorID {
			continue
		}
		pid := postID
		if _, err := notifier.Notify(ctx, NotifyInput{
			RecipientID: target.ID,
			Sender:      *actor,
			Type:        models.NotificationMention,
			PostID:      &pid,
			Text:        fmt.Sprintf("%s mentioned you in %s", actor.Username, where),
		}); err != nil {
			slog.WarnContext(ctx, "mention notification failed", "recipient_id", target.ID, "error", err)
		}
	}
}

var errNoMediaStore = errors.New("media store not configured")
