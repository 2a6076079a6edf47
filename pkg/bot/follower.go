package bot

import (
	"context"
	"fmt"

	"therapypunch/pkg/bluesky"

	"github.com/sirupsen/logrus"
)

type pageFunc func(ctx context.Context, actor string, limit int, cursor string) (bluesky.ProfilePage, error)

// FollowBack follows every follower the account does not already follow.
// It returns how many follows were created.
func (b *Bot) FollowBack(ctx context.Context) (int, error) {
	self := b.client.DID()

	followers, err := b.collectProfiles(ctx, b.client.GetFollowers, self)
	if err != nil {
		return 0, fmt.Errorf("list followers: %w", err)
	}
	follows, err := b.collectProfiles(ctx, b.client.GetFollows, self)
	if err != nil {
		return 0, fmt.Errorf("list follows: %w", err)
	}

	following := make(map[string]bool, len(follows))
	for _, p := range follows {
		following[p.DID] = true
	}

	pacer := newPacer(b.follow.DelayBetween.Duration())
	followed := 0
	for _, p := range followers {
		if p.DID == "" || p.DID == self || following[p.DID] {
			continue
		}
		if p.Viewer != nil && p.Viewer.Following != "" {
			continue
		}
		if err := pacer.Wait(ctx); err != nil {
			return followed, err
		}

		logger := b.logger.WithFields(logrus.Fields{
			"did":    p.DID,
			"handle": p.Handle,
		})
		if _, err := b.client.Follow(ctx, p.DID); err != nil {
			b.metrics.Follows.WithLabelValues("failed").Inc()
			logger.WithError(err).Error("Error following user")
			continue
		}
		following[p.DID] = true
		followed++
		b.metrics.Follows.WithLabelValues("followed").Inc()
		logger.Info("Followed back")
	}

	if followed > 0 {
		b.logger.WithField("count", followed).Info("Follow-back round complete")
	}
	return followed, nil
}

func (b *Bot) collectProfiles(ctx context.Context, list pageFunc, actor string) ([]bluesky.ProfileView, error) {
	var profiles []bluesky.ProfileView
	cursor := ""
	for page := 0; page < b.follow.MaxPages; page++ {
		res, err := list(ctx, actor, b.follow.PageSize, cursor)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, res.Profiles...)
		if res.Cursor == "" || res.Cursor == cursor {
			break
		}
		cursor = res.Cursor
	}
	return profiles, nil
}
