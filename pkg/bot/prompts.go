package bot

import (
	"fmt"
	"strings"

	"therapypunch/pkg/persona"
)

func composeReplyPrompt(p persona.Persona, tc threadContext, mention string) string {
	var sb strings.Builder

	sb.WriteString(p.Instructions)
	sb.WriteString("\n\nCONTEXT:\n")
	fmt.Fprintf(&sb, "Previous message: %s\n", orDefault(tc.ParentPost, "No previous context"))
	fmt.Fprintf(&sb, "Current message: %s\n", orDefault(tc.CurrentPost, "No current context"))
	fmt.Fprintf(&sb, "User's mention: %s\n", mention)

	if len(tc.Replies) > 0 {
		sb.WriteString("\nConversation history:\n")
		for _, r := range tc.Replies {
			fmt.Fprintf(&sb, "%s: %s\n", r.Author, r.Text)
		}
	}

	if len(tc.Images) > 0 {
		sb.WriteString("\nImages in the conversation:\n")
		for i, img := range tc.Images {
			fmt.Fprintf(&sb, "Image %d description: %s\n", i+1, img.Alt)
			fmt.Fprintf(&sb, "Image %d analysis: %s\n", i+1, img.Analysis)
		}
	}

	if len(tc.Links) > 0 {
		sb.WriteString("\nLinks in the post:\n")
		for i, link := range tc.Links {
			fmt.Fprintf(&sb, "Link %d: %s\n", i+1, link.URI)
			if link.Title != "" {
				fmt.Fprintf(&sb, "Link %d title: %s\n", i+1, link.Title)
			}
			if link.Description != "" {
				fmt.Fprintf(&sb, "Link %d description: %s\n", i+1, link.Description)
			}
			if summary := link.Preview.Summary(); summary != "" {
				fmt.Fprintf(&sb, "Link %d page:\n%s\n", i+1, summary)
			}
		}
	}

	if p.Requirements != "" {
		sb.WriteString("\n")
		sb.WriteString(p.Requirements)
		sb.WriteString("\n")
	}

	return sb.String()
}

// stripMention removes the bot's @handle from a mention.
func stripMention(text, handle string) string {
	if handle != "" {
		text = strings.ReplaceAll(text, "@"+strings.TrimPrefix(handle, "@"), "")
	}
	return strings.TrimSpace(text)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

const postSystemPrompt = `You are Therapy Punch, a Gen-Z mental health advocate and expert.
You combine professional mental health knowledge with Gen-Z slang while maintaining accuracy.
Keep responses engaging, informative, and authentic to Gen-Z voice.`

func postContentPrompt(topic, subtopic string) string {
	return fmt.Sprintf(`Topic: %s - %s

Create an informative mental health post that:
1. Shares a specific insight or fact about %s
2. Connects it to practical mental health benefits
3. Provides an actionable tip
4. Uses authentic Gen-Z language naturally
5. Stays under 150 characters (to leave room for template and hashtags)

Make it engaging and memorable!`, topic, subtopic, subtopic)
}

func hashtagPrompt(topic, subtopic string) string {
	return fmt.Sprintf(`Topic: %s - %s
Generate 2 trendy, relevant hashtags for this mental health topic.
Return only the hashtags without # symbol, separated by spaces.
Example: MentalHealthAwareness WellnessJourney`, topic, subtopic)
}
