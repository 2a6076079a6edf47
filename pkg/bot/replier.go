package bot

import (
	"context"
	"errors"
	"fmt"

	"therapypunch/pkg/bluesky"
	"therapypunch/pkg/groq"

	"github.com/sirupsen/logrus"
)

// Outcome is the terminal state of one notification.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeInvalid
	OutcomeFailed
	OutcomePublished
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeFailed:
		return "failed"
	case OutcomePublished:
		return "published"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

const (
	StageFetchThread = "fetch_thread"
	StageGenerate    = "generate"
	StagePublish     = "publish"
)

// StageError reports which step of the reply pipeline failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

var errThreadUnavailable = errors.New("thread unavailable")

// HandleNotification replies to a single mention or reply. The URI is
// recorded as processed before publishing and forgotten again if the publish
// fails.
func (b *Bot) HandleNotification(ctx context.Context, n bluesky.Notification) (Outcome, error) {
	outcome, err := b.handleNotification(ctx, n)
	b.metrics.Replies.WithLabelValues(outcome.String()).Inc()
	return outcome, err
}

func (b *Bot) handleNotification(ctx context.Context, n bluesky.Notification) (Outcome, error) {
	logger := b.logger.WithFields(logrus.Fields{
		"uri":    n.URI,
		"author": n.Author.Handle,
		"reason": n.Reason,
	})

	if b.processed.Contains(n.URI) {
		logger.Info("Skipping already processed URI")
		return OutcomeSkipped, nil
	}
	if n.URI == "" || n.CID == "" {
		logger.Error("Invalid notification format: missing uri or cid")
		return OutcomeInvalid, nil
	}

	thread, err := b.client.GetPostThread(ctx, n.URI)
	if err == nil && (thread == nil || thread.Post == nil) {
		err = errThreadUnavailable
	}
	if err != nil {
		logger.WithError(err).Error("Could not retrieve thread")
		return OutcomeFailed, &StageError{Stage: StageFetchThread, Err: err}
	}

	tc := b.extractContext(ctx, thread)
	mention := stripMention(n.Record.Text, b.botHandle)
	prompt := composeReplyPrompt(b.persona, tc, mention)

	raw, err := b.model.Generate(ctx, groq.Prompt{User: prompt})
	if err != nil {
		logger.WithError(err).Error("Error generating response")
		return OutcomeFailed, &StageError{Stage: StageGenerate, Err: err}
	}
	text := Truncate(b.persona.Shape(raw), b.reply.MaxLength)
	if text == "" {
		logger.Error("Model returned an empty response")
		return OutcomeFailed, &StageError{Stage: StageGenerate, Err: groq.ErrEmptyResponse}
	}

	b.processed.Add(ctx, n.URI)
	b.metrics.ProcessedURIs.Set(float64(b.processed.Len()))

	ref, err := b.client.CreatePost(ctx, text, replyRef(n))
	if err != nil {
		b.processed.Remove(ctx, n.URI)
		b.metrics.ProcessedURIs.Set(float64(b.processed.Len()))
		logger.WithError(err).Error("Failed to post reply")
		return OutcomeFailed, &StageError{Stage: StagePublish, Err: err}
	}

	logger.WithField("reply_uri", ref.URI).Info("Posted reply")
	return OutcomePublished, nil
}

// replyRef threads a reply under n: n is the parent, and the root is carried
// over from n's own reply ref when it has one.
func replyRef(n bluesky.Notification) *bluesky.ReplyRef {
	parent := bluesky.StrongRef{URI: n.URI, CID: n.CID}
	root := parent
	if r := n.Record.Reply; r != nil && r.Root.URI != "" && r.Root.CID != "" {
		root = r.Root
	}
	return &bluesky.ReplyRef{Root: root, Parent: parent}
}

// checkMentions runs one poll of the notification feed.
func (b *Bot) checkMentions(ctx context.Context) error {
	seenAt := b.now()
	notifications, err := b.client.ListNotifications(ctx, b.reply.NotificationLimit)
	if err != nil {
		return fmt.Errorf("mention check: %w", err)
	}

	pacer := newPacer(b.reply.DelayBetween.Duration())
	for _, n := range notifications {
		if n.Reason != "mention" && n.Reason != "reply" {
			continue
		}
		if b.processed.Contains(n.URI) {
			continue
		}
		if err := pacer.Wait(ctx); err != nil {
			return err
		}

		outcome, err := b.HandleNotification(ctx, n)
		if err != nil {
			var stageErr *StageError
			if errors.As(err, &stageErr) {
				b.logger.WithError(stageErr.Err).WithFields(logrus.Fields{
					"uri":   n.URI,
					"stage": stageErr.Stage,
				}).Warn("Reply not sent, will retry next poll")
			}
			continue
		}
		b.logger.WithFields(logrus.Fields{
			"uri":     n.URI,
			"outcome": outcome.String(),
		}).Debug("Notification handled")
	}

	if b.reply.MarkSeen != nil && *b.reply.MarkSeen && len(notifications) > 0 {
		if err := b.client.UpdateSeen(ctx, seenAt); err != nil {
			b.logger.WithError(err).Warn("Could not mark notifications as seen")
		}
	}
	return nil
}
