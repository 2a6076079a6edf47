package bot

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"therapypunch/pkg/config"
	"therapypunch/pkg/logging"
	"therapypunch/pkg/persona"
	"therapypunch/pkg/store"
	"therapypunch/pkg/topics"

	"golang.org/x/sync/errgroup"
)

type Options struct {
	Client    SocialClient
	Model     LanguageModel
	Links     LinkPreviewer
	Processed *store.ProcessedSet
	Scheduler *topics.Scheduler
	Persona   persona.Persona
	// BotHandle is stripped from mention text.
	BotHandle string

	Reply   config.ReplySettings
	Posting config.PostingSettings
	Follow  config.FollowSettings

	Metrics *Metrics
	Logger  logging.Logger
	Rand    *rand.Rand
	Now     func() time.Time
}

// Bot owns the mention, posting and follow-back loops of one account.
type Bot struct {
	client    SocialClient
	model     LanguageModel
	links     LinkPreviewer
	processed *store.ProcessedSet
	scheduler *topics.Scheduler
	persona   persona.Persona
	botHandle string

	reply   config.ReplySettings
	posting config.PostingSettings
	follow  config.FollowSettings

	metrics *Metrics
	logger  logging.Logger
	now     func() time.Time

	postMu   sync.Mutex
	lastPost time.Time
	rng      *rand.Rand
}

func New(opts Options) *Bot {
	b := &Bot{
		client:    opts.Client,
		model:     opts.Model,
		links:     opts.Links,
		processed: opts.Processed,
		scheduler: opts.Scheduler,
		persona:   opts.Persona,
		botHandle: opts.BotHandle,
		reply:     opts.Reply,
		posting:   opts.Posting,
		follow:    opts.Follow,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Now,
		rng:       opts.Rand,
	}
	if b.metrics == nil {
		b.metrics = NewMetrics(nil)
	}
	if b.logger == nil {
		b.logger = logging.NewDiscard()
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.rng == nil {
		b.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if b.scheduler == nil {
		b.scheduler = topics.NewScheduler(topics.DefaultCatalog(), nil)
	}
	if b.processed != nil {
		b.metrics.ProcessedURIs.Set(float64(b.processed.Len()))
	}
	return b
}

// Run starts all loops and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		poll := b.reply.PollInterval.Duration()
		return b.runLoop(ctx, "mentions", poll, poll, b.checkMentions)
	})

	g.Go(func() error {
		return b.runLoop(ctx, "posting", b.posting.CheckInterval.Duration(), b.posting.ErrorDelay.Duration(),
			func(ctx context.Context) error {
				_, err := b.PostContent(ctx)
				return err
			})
	})

	g.Go(func() error {
		return b.runLoop(ctx, "follow", b.follow.Interval.Duration(), b.follow.ErrorDelay.Duration(),
			func(ctx context.Context) error {
				_, err := b.FollowBack(ctx)
				return err
			})
	})

	b.logger.Info("Bot is running")
	err := g.Wait()
	b.logger.Info("Bot stopped")
	return err
}
