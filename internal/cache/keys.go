package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	UserKeyPrefix     = "user:%d"
	UsernameKeyPrefix = "user:name:%s"
	UnreadKeyPrefix   = "notifications:unread:%d"
	WSTicketPrefix    = "ws_ticket:%s"
	BlacklistPrefix   = "blacklist:%s"
)

// Only viewer-independent data is cached. Per-viewer flags such as is_liked
// or is_following are always computed.
const (
	UserTTL   = 5 * time.Minute
	UnreadTTL = time.Minute
	TicketTTL = 30 * time.Second
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func UsernameKey(username string) string {
	return fmt.Sprintf(UsernameKeyPrefix, strings.ToLower(username))
}

func UnreadKey(userID uint) string {
	return fmt.Sprintf(UnreadKeyPrefix, userID)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketPrefix, ticket)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistPrefix, jti)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateUser drops the cached record and the username lookup.
func InvalidateUser(ctx context.Context, userID uint, username string) {
	keys := []string{UserKey(userID)}
	if username != "" {
		keys = append(keys, UsernameKey(username))
	}
	Invalidate(ctx, keys...)
}

func InvalidateUnread(ctx context.Context, userID uint) {
	Invalidate(ctx, UnreadKey(userID))
}
