package bot

import (
	"context"
	"time"

	"therapypunch/pkg/bluesky"
	"therapypunch/pkg/groq"
	"therapypunch/pkg/linkpreview"
)

// SocialClient abstracts bluesky.Client for testing
type SocialClient interface {
	DID() string
	ListNotifications(ctx context.Context, limit int) ([]bluesky.Notification, error)
	UpdateSeen(ctx context.Context, seenAt time.Time) error
	GetPostThread(ctx context.Context, uri string) (*bluesky.ThreadView, error)
	GetPosts(ctx context.Context, uris []string) ([]bluesky.PostView, error)
	CreatePost(ctx context.Context, text string, reply *bluesky.ReplyRef) (bluesky.StrongRef, error)
	GetFollowers(ctx context.Context, actor string, limit int, cursor string) (bluesky.ProfilePage, error)
	GetFollows(ctx context.Context, actor string, limit int, cursor string) (bluesky.ProfilePage, error)
	Follow(ctx context.Context, did string) (bluesky.StrongRef, error)
}

type LanguageModel interface {
	Generate(ctx context.Context, p groq.Prompt) (string, error)
	Describe(ctx context.Context, altText string) (string, error)
}

// LinkPreviewer fetches page metadata for external link cards.
type LinkPreviewer interface {
	Preview(ctx context.Context, rawURL string) (*linkpreview.Preview, error)
}
