package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"
)

// PostStatus is the publication state of a blog post.
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
	PostArchived  PostStatus = "archived"
)

// Post is a blog post.
type Post struct {
	ID               string         `db:"id" json:"id"`
	Slug             string         `db:"slug" json:"slug"`
	Title            string         `db:"title" json:"title"`
	Excerpt          *string        `db:"excerpt" json:"excerpt,omitempty"`
	Content          string         `db:"content" json:"content"`
	FeaturedImageURL *string        `db:"featured_image_url" json:"featured_image_url,omitempty"`
	Category         string         `db:"category" json:"category"`
	Tags             pq.StringArray `db:"tags" json:"tags"`
	Status           PostStatus     `db:"status" json:"status"`
	CreatedBy        *string        `db:"created_by" json:"created_by,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
	PublishedAt      *time.Time     `db:"published_at" json:"published_at,omitempty"`
	DeletedAt        *time.Time     `db:"deleted_at" json:"-"`
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a title to a URL-friendly slug. Polish diacritics are
// transliterated before stripping.
func Slugify(text string) string {
	text = strings.ToLower(text)
	replacer := strings.NewReplacer(
		"ą", "a", "ć", "c", "ę", "e", "ł", "l", "ń", "n",
		"ó", "o", "ś", "s", "ź", "z", "ż", "z",
	)
	text = replacer.Replace(text)
	text = slugStrip.ReplaceAllString(text, "-")
	return strings.Trim(text, "-")
}
