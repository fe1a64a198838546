// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"snapgram/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password every seeded account logs in with.
const DefaultPassword = "password123"

var sampleVideos = []string{
	"https://cdn.snapgram.dev/samples/beach.mp4",
	"https://cdn.snapgram.dev/samples/city-night.mp4",
	"https://cdn.snapgram.dev/samples/forest-walk.mov",
	"https://cdn.snapgram.dev/samples/latte-art.mp4",
	"https://cdn.snapgram.dev/samples/skate.mp4",
}

var usernameUnsafe = regexp.MustCompile(`[^a-z0-9._]+`)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db     *gorm.DB
	opts   Options
	faker  *gofakeit.Faker
	hashed string
	now    time.Time
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a Factory bound to db. The shared password is hashed
// once up front.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	opts = opts.withDefaults()
	cost := bcrypt.DefaultCost
	if opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(opts.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	return &Factory{
		db:     db,
		opts:   opts,
		faker:  gofakeit.New(opts.RandSeed),
		hashed: string(hashed),
		now:    time.Now().UTC(),
		nextID: 1000,
	}, nil
}

// Intn returns a pseudo-random number in [0, n).
func (f *Factory) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	return f.faker.Number(0, n-1)
}

// Chance reports true with probability p.
func (f *Factory) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return f.faker.Float64Range(0, 1) < p
}

// pastTime spreads timestamps across the configured window.
func (f *Factory) pastTime() time.Time {
	maxMinutes := f.opts.MaxDays * 24 * 60
	return f.now.Add(-time.Duration(f.Intn(maxMinutes)+1) * time.Minute)
}

// Username derives a valid, probably unique handle from a person's name.
func (f *Factory) Username(first, last string) string {
	base := strings.ToLower(first + "." + last)
	base = usernameUnsafe.ReplaceAllString(base, "")
	base = strings.Trim(strings.ReplaceAll(base, "..", "."), ".")
	if len(base) > 22 {
		base = strings.TrimRight(base[:22], ".")
	}
	if len(base) < 3 {
		base = "user"
	}
	return fmt.Sprintf("%s_%d", base, f.faker.Number(100, 99999))
}

// CreateUser constructs and persists a sample user. Overrides run before
// the insert.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	first, last := f.faker.FirstName(), f.faker.LastName()
	username := f.Username(first, last)
	user := &models.User{
		Username:   username,
		Email:      username + "@" + f.faker.DomainName(),
		Password:   f.hashed,
		FullName:   first + " " + last,
		Bio:        truncate(f.faker.Sentence(8), 150),
		Avatar:     fmt.Sprintf("https://i.pravatar.cc/400?u=%s", f.faker.UUID()),
		IsVerified: f.Chance(0.05),
		CreatedAt:  f.pastTime(),
	}
	if f.Chance(0.3) {
		user.Website = "https://" + f.faker.DomainName()
	}
	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Username, err)
	}
	return user, nil
}

// BuildPost constructs a post without persisting it.
func (f *Factory) BuildPost(user *models.User, video bool) *models.Post {
	post := &models.Post{
		UserID:    user.ID,
		Caption:   truncate(f.faker.Sentence(f.faker.Number(4, 16)), 2200),
		CreatedAt: f.pastTime(),
	}
	if video {
		post.Media = sampleVideos[f.Intn(len(sampleVideos))]
		post.MediaType = models.MediaVideo
	} else {
		post.Media = fmt.Sprintf("https://picsum.photos/seed/%s/1080/1080.jpg", f.faker.UUID())
		post.MediaType = models.MediaImage
	}
	if f.Chance(0.5) {
		post.Hashtags = hashtag(f.faker.Hobby()) + " " + hashtag(f.faker.Adjective())
	}
	if f.Chance(0.3) {
		post.Location = truncate(f.faker.City(), 100)
	}
	post.UpdatedAt = post.CreatedAt
	return post
}

// CreatePostsBatch persists posts in batches.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		log.Printf("dry-run: skipped insert of %d posts", len(posts))
		return nil
	}
	return f.db.Omit("User").CreateInBatches(posts, f.opts.BatchSize).Error
}

// CreateStory persists an active story for user.
func (f *Factory) CreateStory(user *models.User) (*models.Story, error) {
	created := f.now.Add(-time.Duration(f.Intn(23*60)+1) * time.Minute)
	story := &models.Story{
		UserID:    user.ID,
		Media:     fmt.Sprintf("https://picsum.photos/seed/%s/1080/1920.jpg", f.faker.UUID()),
		MediaType: models.MediaImage,
		CreatedAt: created,
		ExpiresAt: created.Add(models.StoryTTL),
	}
	if f.Chance(0.2) {
		story.Media = sampleVideos[f.Intn(len(sampleVideos))]
		story.MediaType = models.MediaVideo
	}
	if f.opts.DryRun {
		f.nextID++
		story.ID = f.nextID
		return story, nil
	}
	if err := f.db.Omit("User").Create(story).Error; err != nil {
		return nil, err
	}
	return story, nil
}

// CreateComment persists a comment by user on post.
func (f *Factory) CreateComment(user *models.User, post *models.Post) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:  post.ID,
		UserID:  user.ID,
		Content: truncate(f.faker.Sentence(f.faker.Number(3, 12)), 2200),
	}
	comment.CreatedAt = post.CreatedAt.Add(time.Duration(f.Intn(72*60)+1) * time.Minute)
	if comment.CreatedAt.After(f.now) {
		comment.CreatedAt = f.now
	}
	comment.UpdatedAt = comment.CreatedAt
	if f.opts.DryRun {
		f.nextID++
		comment.ID = f.nextID
		return comment, nil
	}
	if err := f.db.Omit("User", "Post").Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike records user's like on post. Existing likes are left alone.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).Omit("User", "Post").
		Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error
}

// CreateSave adds post to user's saved collection.
func (f *Factory) CreateSave(user *models.User, post *models.Post) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).Omit("User", "Post").
		Create(&models.Save{UserID: user.ID, PostID: post.ID}).Error
}

// CreateFollow inserts the edge follower -> followed.
func (f *Factory) CreateFollow(follower, followed *models.User) error {
	if f.opts.DryRun || follower.ID == followed.ID {
		return nil
	}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).Omit("Follower", "Followed").
		Create(&models.Follow{FollowerID: follower.ID, FollowedID: followed.ID}).Error
}

var hashtagUnsafe = regexp.MustCompile(`[^a-z0-9_]+`)

func hashtag(word string) string {
	return "#" + hashtagUnsafe.ReplaceAllString(strings.ToLower(word), "")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
