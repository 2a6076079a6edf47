package linkpreview

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

type Preview struct {
	URL         string
	Title       string
	Description string
	SiteName    string
	Excerpt     string
}

// Summary renders the preview as a few lines for a prompt.
func (p *Preview) Summary() string {
	if p == nil {
		return ""
	}
	var lines []string
	if p.Title != "" {
		lines = append(lines, "Title: "+p.Title)
	}
	if p.SiteName != "" {
		lines = append(lines, "Site: "+p.SiteName)
	}
	if p.Description != "" {
		lines = append(lines, "Description: "+p.Description)
	}
	if p.Excerpt != "" && p.Excerpt != p.Description {
		lines = append(lines, "Excerpt: "+p.Excerpt)
	}
	return strings.Join(lines, "\n")
}

func extract(r io.Reader, excerptLength int) (*Preview, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	preview := &Preview{}
	extractMetadata(doc, preview)
	if preview.Title == "" {
		preview.Title = extractTitle(doc)
	}
	preview.Excerpt = truncate(bodyText(doc), excerptLength)
	return preview, nil
}

func extractTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	for _, sep := range []string{" - ", " | "} {
		if parts := strings.Split(title, sep); len(parts) > 1 {
			title = parts[0]
		}
	}
	return strings.TrimSpace(title)
}

func extractMetadata(doc *goquery.Document, preview *Preview) {
	doc.Find("meta[property^='og:']").Each(func(i int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content := strings.TrimSpace(s.AttrOr("content", ""))

		switch prop {
		case "og:title":
			preview.Title = content
		case "og:site_name":
			preview.SiteName = content
		case "og:description":
			preview.Description = content
		}
	})

	doc.Find("meta[name^='twitter:']").Each(func(i int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content := strings.TrimSpace(s.AttrOr("content", ""))

		switch name {
		case "twitter:title":
			if preview.Title == "" {
				preview.Title = content
			}
		case "twitter:description":
			if preview.Description == "" {
				preview.Description = content
			}
		}
	})

	if preview.Description == "" {
		preview.Description = strings.TrimSpace(doc.Find("meta[name='description']").First().AttrOr("content", ""))
	}
}

// bodyText returns the text of the densest paragraph-bearing container,
// falling back to the whole body.
func bodyText(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside, form, iframe, noscript").Remove()
	doc.Find("[hidden], .comments, .sidebar, .share, .social, .ad, .ads").Remove()

	var best string
	doc.Find("article, main, [role='main']").Each(func(i int, s *goquery.Selection) {
		if text := paragraphs(s); utf8.RuneCountInString(text) > utf8.RuneCountInString(best) {
			best = text
		}
	})
	if best == "" {
		best = paragraphs(doc.Selection)
	}
	if best == "" {
		best = collapse(doc.Find("body").Text())
	}
	return best
}

func paragraphs(s *goquery.Selection) string {
	var parts []string
	s.Find("p").Each(func(i int, p *goquery.Selection) {
		if text := collapse(p.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncate(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}

	runed := []rune(text)
	for i := maxLen; i > maxLen-50 && i > 0; i-- {
		if runed[i] == ' ' || runed[i] == '.' || runed[i] == ',' {
			return string(runed[:i]) + "..."
		}
	}
	return string(runed[:maxLen]) + "..."
}
