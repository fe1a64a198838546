package seed

import (
	"fmt"
	"log"
	"time"

	"snapgram/internal/database"
	"snapgram/internal/models"

	"gorm.io/gorm"
)

// Options configures a Seeder.
type Options struct {
	// SkipBcrypt hashes the shared password at the minimum cost.
	SkipBcrypt bool
	// DryRun builds entities without writing them.
	DryRun    bool
	BatchSize int
	// MaxDays bounds how far back generated timestamps go.
	MaxDays  int
	RandSeed int64
	Password string
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.MaxDays <= 0 {
		o.MaxDays = 30
	}
	if o.RandSeed == 0 {
		o.RandSeed = time.Now().UnixNano()
	}
	if o.Password == "" {
		o.Password = DefaultPassword
	}
	return o
}

// Summary counts what a seeding run created.
type Summary struct {
	Users    int `json:"users"`
	Follows  int `json:"follows"`
	Posts    int `json:"posts"`
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Saves    int `json:"saves"`
	Stories  int `json:"stories"`
}

func (s Summary) String() string {
	return fmt.Sprintf("users=%d follows=%d posts=%d likes=%d comments=%d saves=%d stories=%d",
		s.Users, s.Follows, s.Posts, s.Likes, s.Comments, s.Saves, s.Stories)
}

// Seeder populates a database with generated users and content.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder returns a Seeder writing to db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: f}, nil
}

// Factory exposes the underlying entity factory.
func (s *Seeder) Factory() *Factory { return s.factory }

// Users creates n accounts.
func (s *Seeder) Users(n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		u, err := s.factory.CreateUser()
		if err != nil {
			return users, err
		}
		users = append(users, u)
	}
	log.Printf("✓ %d users created", len(users))
	return users, nil
}

// Posts creates n posts spread round-robin over users. videoRatio is the
// share of posts that carry video.
func (s *Seeder) Posts(users []*models.User, n int, videoRatio float64) ([]*models.Post, error) {
	if len(users) == 0 || n <= 0 {
		return nil, nil
	}
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		owner := users[i%len(users)]
		posts = append(posts, s.factory.BuildPost(owner, s.factory.Chance(videoRatio)))
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	log.Printf("✓ %d posts created", len(posts))
	return posts, nil
}

// ApplyPreset seeds a complete social graph described by p.
func (s *Seeder) ApplyPreset(p Preset) (Summary, error) {
	var sum Summary
	if err := p.Validate(); err != nil {
		return sum, err
	}
	log.Printf("🌱 Seeding preset %q", p.Name)
	f := s.factory
	if p.MaxDays > 0 {
		f.opts.MaxDays = p.MaxDays
	}

	users, err := s.Users(p.Users)
	sum.Users = len(users)
	if err != nil {
		return sum, err
	}

	for _, a := range users {
		for _, b := range users {
			if a.ID == b.ID || !f.Chance(p.FollowProbability) {
				continue
			}
			if err := f.CreateFollow(a, b); err != nil {
				return sum, fmt.Errorf("create follow: %w", err)
			}
			sum.Follows++
		}
	}

	posts, err := s.Posts(users, p.Users*p.PostsPerUser, p.VideoRatio)
	if err != nil {
		return sum, err
	}
	sum.Posts = len(posts)

	for _, post := range posts {
		for _, liker := range s.pick(users, p.LikesPerPost) {
			if err := f.CreateLike(liker, post); err != nil {
				return sum, fmt.Errorf("create like: %w", err)
			}
			sum.Likes++
		}
		for i := 0; i < p.CommentsPerPost; i++ {
			author := users[f.Intn(len(users))]
			if _, err := f.CreateComment(author, post); err != nil {
				return sum, fmt.Errorf("create comment: %w", err)
			}
			sum.Comments++
		}
	}

	for _, u := range users {
		for _, post := range s.pickPosts(posts, p.SavesPerUser) {
			if err := f.CreateSave(u, post); err != nil {
				return sum, fmt.Errorf("create save: %w", err)
			}
			sum.Saves++
		}
		for i := 0; i < p.StoriesPerUser; i++ {
			if _, err := f.CreateStory(u); err != nil {
				return sum, fmt.Errorf("create story: %w", err)
			}
			sum.Stories++
		}
	}

	log.Printf("🎉 Preset %q done: %s", p.Name, sum)
	return sum, nil
}

// pick returns up to n distinct users.
func (s *Seeder) pick(users []*models.User, n int) []*models.User {
	if n >= len(users) {
		return users
	}
	out := make([]*models.User, 0, n)
	for _, i := range s.perm(len(users))[:n] {
		out = append(out, users[i])
	}
	return out
}

func (s *Seeder) pickPosts(posts []*models.Post, n int) []*models.Post {
	if n >= len(posts) {
		return posts
	}
	out := make([]*models.Post, 0, n)
	for _, i := range s.perm(len(posts))[:n] {
		out = append(out, posts[i])
	}
	return out
}

func (s *Seeder) perm(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	s.factory.faker.ShuffleInts(idx)
	return idx
}

// Clean removes all application rows. Postgres tables are truncated with
// their identity sequences reset.
func Clean(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	all := database.PersistentModels()
	if db.Dialector.Name() == "postgres" {
		tables := ""
		for i, m := range all {
			stmt := &gorm.Statement{DB: db}
			if err := stmt.Parse(m); err != nil {
				return err
			}
			if i > 0 {
				tables += ", "
			}
			tables += stmt.Schema.Table
		}
		return db.Exec("TRUNCATE TABLE " + tables + " RESTART IDENTITY CASCADE").Error
	}
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(all[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", all[i], err)
		}
	}
	return nil
}
