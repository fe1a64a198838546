package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"snapgram/internal/models"
	"snapgram/internal/observability"
	"snapgram/internal/repository"
)

const (
	maxCommentLen         = 2200
	commentPreviewLen     = 20
	DefaultCommentPerPage = 50
)

// InteractionService handles likes, saves and comments on posts.
type InteractionService struct {
	interactions repository.InteractionRepository
	posts        repository.PostRepository
	comments     repository.CommentRepository
	users        repository.UserRepository
	notifier     NotificationSender
}

func NewInteractionService(
	interactions repository.InteractionRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	notifier NotificationSender,
) *InteractionService {
	return &InteractionService{
		interactions: interactions,
		posts:        posts,
		comments:     comments,
		users:        users,
		notifier:     notifier,
	}
}

// ToggleLike likes or unlikes postID. A new like on someone else's post
// notifies the owner.
func (s *InteractionService) ToggleLike(ctx context.Context, actorID, postID uint) (models.LikeResult, error) {
	post, err := s.posts.GetByID(ctx, postID, actorID)
	if err != nil {
		return models.LikeResult{}, err
	}
	liked, created, err := s.interactions.ToggleLike(ctx, actorID, postID)
	if err != nil {
		return models.LikeResult{}, err
	}
	observability.RecordToggle("like", liked)

	if created && post.UserID != actorID {
		s.notifyOwner(ctx, actorID, post, models.NotificationLike, func(u string) string {
			return fmt.Sprintf("%s liked your post", u)
		})
	}

	count, err := s.interactions.CountLikes(ctx, postID)
	if err != nil {
		return models.LikeResult{}, err
	}
	return models.LikeResult{Liked: liked, LikesCount: count}, nil
}

// ToggleSave bookmarks or un-bookmarks postID. Saves never notify.
func (s *InteractionService) ToggleSave(ctx context.Context, actorID, postID uint) (models.SaveResult, error) {
	if _, err := s.posts.GetByID(ctx, postID, actorID); err != nil {
		return models.SaveResult{}, err
	}
	saved, _, err := s.interactions.ToggleSave(ctx, actorID, postID)
	if err != nil {
		return models.SaveResult{}, err
	}
	observability.RecordToggle("save", saved)
	return models.SaveResult{Saved: saved}, nil
}

// AddComment always inserts a new comment. The post owner is notified with a
// short preview unless they wrote it; @mentioned users get a mention.
func (s *InteractionService) AddComment(ctx context.Context, actorID, postID uint, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("Comment text is required")
	}
	if len([]rune(content)) > maxCommentLen {
		return nil, models.NewValidationError(fmt.Sprintf("Comment too long (max %d characters)", maxCommentLen))
	}
	post, err := s.posts.GetByID(ctx, postID, actorID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: postID, UserID: actorID, Content: content}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	if post.UserID != actorID {
		preview := truncate(content, commentPreviewLen)
		s.notifyOwner(ctx, actorID, post, models.NotificationComment, func(u string) string {
			return fmt.Sprintf("%s commented: %s", u, preview)
		})
	}
	notifyMentions(ctx, s.users, s.notifier, actorID, post.ID, content, "a comment")

	return s.comments.GetByID(ctx, comment.ID)
}

// Comments lists a post's comments, newest first.
func (s *InteractionService) Comments(ctx context.Context, postID uint, page Page) ([]*models.Comment, bool, error) {
	if _, err := s.posts.GetByID(ctx, postID, 0); err != nil {
		return nil, false, err
	}
	page = page.normalize(DefaultCommentPerPage)
	items, err := s.comments.ListByPost(ctx, postID, page.PerPage+1, page.offset())
	if err != nil {
		return nil, false, err
	}
	return trimPage(items, page.PerPage)
}

// DeleteComment removes a comment written by actorID.
func (s *InteractionService) DeleteComment(ctx context.Context, actorID, commentID uint) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != actorID {
		return models.NewForbiddenError("You can only delete your own comments")
	}
	return s.comments.Delete(ctx, commentID)
}

// notifyOwner runs after the like or comment is committed. Failures are
// logged only, since a client retry would undo a like or duplicate a comment.
func (s *InteractionService) notifyOwner(
	ctx context.Context, actorID uint, post *models.Post, kind models.NotificationType, text func(username string) string,
) {
	if s.notifier == nil {
		return
	}
	actor, err := s.users.GetByID(ctx, actorID)
	if err == nil {
		postID := post.ID
		_, err = s.notifier.Notify(ctx, NotifyInput{
			RecipientID: post.UserID,
			Sender:      *actor,
			Type:        kind,
			PostID:      &postID,
			Text:        text(actor.Username),
		})
	}
	if err != nil {
		slog.WarnContext(ctx, "owner notification failed",
			"type", kind, "post_id", post.ID, "recipient_id", post.UserID, "error", err)
	}
}
