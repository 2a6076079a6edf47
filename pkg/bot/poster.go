package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"therapypunch/pkg/groq"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var baseHashtags = []string{"#MentalHealth", "#TherapyPunch", "#Healing"}

const maxHashtags = 4

var postTemplates = map[string][]string{
	"educational": {
		"mental health facts bestie! {content} 🧠 science said that fr! {hashtags}",
		"therapy tea time: {content} no cap, research proves it! {hashtags}",
		"bestie did u know? {content} this is your sign to level up 💫 {hashtags}",
	},
	"tips": {
		"mental health hack alert! {content} trust me on this one fr {hashtags}",
		"bestie try this rn: {content} it's giving self-care energy ✨ {hashtags}",
		"your daily reminder: {content} you got this fr fr {hashtags}",
	},
	"research": {
		"new study just dropped! {content} science is wild fr {hashtags}",
		"research tea: {content} let that sink in bestie 🤯 {hashtags}",
		"mental health news flash: {content} sharing facts only! {hashtags}",
	},
}

var templateFamilies = map[string]string{
	"mental_health_facts":     "educational",
	"nutrition_mental_health": "educational",
	"sleep_health":            "research",
	"anxiety_depression":      "research",
}

var (
	errNoTopics     = errors.New("no topics configured")
	errEmptyContent = errors.New("model returned empty content")
)

// GeneratedPost is a rendered scheduled post.
type GeneratedPost struct {
	Text     string
	Topic    string
	Subtopic string
}

// PostContent publishes one scheduled post unless the cooldown since the last
// successful post is still running.
func (b *Bot) PostContent(ctx context.Context) (bool, error) {
	if !b.canPost() {
		b.metrics.Posts.WithLabelValues("cooldown").Inc()
		return false, nil
	}

	post, err := b.generatePost(ctx)
	if err != nil {
		b.metrics.Posts.WithLabelValues("failed").Inc()
		return false, err
	}

	if _, err := b.client.CreatePost(ctx, post.Text, nil); err != nil {
		b.metrics.Posts.WithLabelValues("failed").Inc()
		return false, fmt.Errorf("post creation: %w", err)
	}

	b.postMu.Lock()
	b.lastPost = b.now()
	b.postMu.Unlock()

	b.metrics.Posts.WithLabelValues("published").Inc()
	b.logger.WithFields(logrus.Fields{
		"topic":    post.Topic,
		"subtopic": post.Subtopic,
	}).Info("Successfully posted scheduled content")
	return true, nil
}

func (b *Bot) canPost() bool {
	b.postMu.Lock()
	defer b.postMu.Unlock()
	if b.lastPost.IsZero() {
		return true
	}
	return b.now().Sub(b.lastPost) >= b.posting.Cooldown.Duration()
}

func (b *Bot) generatePost(ctx context.Context) (*GeneratedPost, error) {
	topic, subtopic := b.scheduler.Next()
	if topic == "" {
		return nil, errNoTopics
	}

	content, err := b.model.Generate(ctx, groq.Prompt{
		System: postSystemPrompt,
		User:   postContentPrompt(topic, subtopic),
	})
	if err != nil {
		return nil, fmt.Errorf("content generation: %w", err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errEmptyContent
	}

	hashtags := b.hashtags(ctx, topic, subtopic)
	template := b.pickTemplate(topic)
	text := strings.NewReplacer(
		"{content}", content,
		"{hashtags}", strings.Join(hashtags, " "),
	).Replace(template)

	return &GeneratedPost{
		Text:     Truncate(text, b.posting.MaxLength),
		Topic:    topic,
		Subtopic: subtopic,
	}, nil
}

// hashtags combines the base set, up to two model-suggested tags and tags
// from the topic's key terms, in that order, so model tags win the slots
// left under the cap. Any model failure falls back to the base set.
func (b *Bot) hashtags(ctx context.Context, topic, subtopic string) []string {
	fallback := append([]string(nil), baseHashtags...)

	raw, err := b.model.Generate(ctx, groq.Prompt{User: hashtagPrompt(topic, subtopic)})
	if err != nil {
		b.logger.WithError(err).Warn("Hashtag generation error")
		return fallback
	}
	modelTags := sanitizeHashtags(raw, 2)
	if len(modelTags) == 0 {
		return fallback
	}

	var topicTags []string
	if t, ok := b.scheduler.Catalog().Lookup(topic); ok {
		terms := t.KeyTerms
		if len(terms) > 2 {
			terms = terms[:2]
		}
		for _, term := range terms {
			if tag := termHashtag(term); tag != "" {
				topicTags = append(topicTags, tag)
			}
		}
	}

	all := append(append(fallback, modelTags...), topicTags...)
	return dedupe(all, maxHashtags)
}

func (b *Bot) pickTemplate(topic string) string {
	family, ok := templateFamilies[topic]
	if !ok {
		family = "tips"
	}
	templates := postTemplates[family]

	b.postMu.Lock()
	defer b.postMu.Unlock()
	return templates[b.rng.IntN(len(templates))]
}

// termHashtag turns "gut health" into "#GutHealth".
func termHashtag(term string) string {
	tag := strings.ReplaceAll(cases.Title(language.English).String(strings.TrimSpace(term)), " ", "")
	if tag == "" {
		return ""
	}
	return "#" + tag
}

// sanitizeHashtags returns up to limit tags from whitespace-separated model
// output, keeping letters, digits and underscores.
func sanitizeHashtags(raw string, limit int) []string {
	var tags []string
	for _, field := range strings.Fields(raw) {
		tag := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
				return r
			}
			return -1
		}, field)
		if tag == "" {
			continue
		}
		tags = append(tags, "#"+tag)
		if len(tags) == limit {
			break
		}
	}
	return tags
}

func dedupe(tags []string, limit int) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, limit)
	for _, tag := range tags {
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
		if len(out) == limit {
			break
		}
	}
	return out
}
