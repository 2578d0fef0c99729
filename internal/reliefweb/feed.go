package reliefweb

import (
	"log"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const maxFeedItems = 50

// FeedEntry is one item from the updates RSS feed. The feed carries
// no taxonomy, so entries are candidates for a full API lookup rather
// than complete reports.
type FeedEntry struct {
	URL           string
	Title         string
	PublishedDate string // YYYY-MM-DD or empty
	Summary       string
}

// FeedPoller reads the ReliefWeb updates RSS feed.
type FeedPoller struct {
	feedURL string
}

// NewFeedPoller creates a poller for the given feed URL.
func NewFeedPoller(feedURL string) *FeedPoller {
	return &FeedPoller{feedURL: feedURL}
}

// Poll returns recent feed entries published within daysBack days.
func (fp *FeedPoller) Poll(daysBack int) ([]FeedEntry, error) {
	cutoff := time.Now().AddDate(0, 0, -daysBack)

	feed, err := gofeed.NewParser().ParseURL(fp.feedURL)
	if err != nil {
		return nil, err
	}

	var entries []FeedEntry
	for _, item := range feed.Items {
		if len(entries) >= maxFeedItems {
			break
		}
		entry := parseItem(item)
		if entry == nil {
			continue
		}
		if isWithinWindow(entry.PublishedDate, cutoff) {
			entries = append(entries, *entry)
		}
	}

	log.Printf("Parsed %d entries from updates feed (within %d days)", len(entries), daysBack)
	return entries, nil
}

func parseItem(item *gofeed.Item) *FeedEntry {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	var publishedDate string
	if item.PublishedParsed != nil {
		publishedDate = item.PublishedParsed.Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		publishedDate = item.UpdatedParsed.Format("2006-01-02")
	}

	var summary string
	if item.Description != "" {
		summary = stripHTML(item.Description)
	} else if item.Content != "" {
		summary = stripHTML(item.Content)
	}

	return &FeedEntry{
		URL:           itemURL,
		Title:         title,
		PublishedDate: publishedDate,
		Summary:       summary,
	}
}

func isWithinWindow(publishedDate string, cutoff time.Time) bool {
	if publishedDate == "" {
		return true // benefit of the doubt
	}
	pub, err := time.Parse("2006-01-02", publishedDate)
	if err != nil {
		return true
	}
	return !pub.Before(cutoff)
}

func stripHTML(text string) string {
	// Simple HTML tag removal
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	// Decode common entities
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	// Normalize whitespace
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
