package bot

import (
	"context"

	"therapypunch/pkg/bluesky"
	"therapypunch/pkg/linkpreview"

	"github.com/sirupsen/logrus"
)

type replyLine struct {
	Author string
	Text   string
}

type imageNote struct {
	Alt      string
	Analysis string
}

type linkNote struct {
	URI         string
	Title       string
	Description string
	Preview     *linkpreview.Preview
}

// threadContext is everything the reply prompt knows about a conversation.
type threadContext struct {
	CurrentPost string
	ParentPost  string
	IsReply     bool
	Replies     []replyLine
	Images      []imageNote
	Links       []linkNote
}

func (b *Bot) extractContext(ctx context.Context, thread *bluesky.ThreadView) threadContext {
	post := thread.Post
	tc := threadContext{CurrentPost: post.Record.Text}

	if reply := post.Record.Reply; reply != nil && reply.Parent.URI != "" {
		tc.IsReply = true
		if parent := b.fetchParent(ctx, reply.Parent.URI); parent != nil {
			tc.ParentPost = parent.Record.Text
			tc.Images = append(tc.Images, b.describeImages(ctx, parent.Embed)...)
		}
	}

	for _, r := range thread.Replies {
		if r == nil || r.Post == nil || r.Post.Record.Text == "" {
			continue
		}
		tc.Replies = append(tc.Replies, replyLine{
			Author: r.Post.Author.Handle,
			Text:   r.Post.Record.Text,
		})
	}

	tc.Images = append(tc.Images, b.describeImages(ctx, post.Embed)...)

	if link := post.Embed.Link(); link != nil && link.URI != "" {
		note := linkNote{URI: link.URI, Title: link.Title, Description: link.Description}
		if b.links != nil {
			preview, err := b.links.Preview(ctx, link.URI)
			if err != nil {
				b.logger.WithError(err).WithField("url", link.URI).Debug("Link preview failed")
			} else {
				note.Preview = preview
			}
		}
		tc.Links = append(tc.Links, note)
	}

	return tc
}

func (b *Bot) fetchParent(ctx context.Context, uri string) *bluesky.PostView {
	posts, err := b.client.GetPosts(ctx, []string{uri})
	if err != nil {
		b.logger.WithError(err).WithField("uri", uri).Warn("Could not fetch parent post")
		return nil
	}
	if len(posts) == 0 {
		return nil
	}
	return &posts[0]
}

// describeImages asks the model about each image's alt text. A failed call
// leaves that image's analysis empty.
func (b *Bot) describeImages(ctx context.Context, embed *bluesky.EmbedView) []imageNote {
	images := embed.AllImages()
	if len(images) == 0 {
		return nil
	}

	notes := make([]imageNote, 0, len(images))
	for _, img := range images {
		note := imageNote{Alt: img.Alt}
		analysis, err := b.model.Describe(ctx, img.Alt)
		if err != nil {
			b.logger.WithError(err).WithFields(logrus.Fields{
				"image": img.Fullsize,
			}).Warn("Image analysis failed")
		} else {
			note.Analysis = analysis
		}
		notes = append(notes, note)
	}
	return notes
}
