package models

import "time"

// PageStatus is the publication state of a CMS page.
type PageStatus string

const (
	PageDraft     PageStatus = "draft"
	PagePublished PageStatus = "published"
)

// Page is a static CMS page addressed by URL slug.
type Page struct {
	ID              string     `db:"id" json:"id"`
	Slug            string     `db:"slug" json:"slug"`
	Title           string     `db:"title" json:"title"`
	MetaDescription *string    `db:"meta_description" json:"meta_description,omitempty"`
	Content         string     `db:"content" json:"content"`
	Status          PageStatus `db:"status" json:"status"`
	CreatedBy       *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	PublishedAt     *time.Time `db:"published_at" json:"published_at,omitempty"`
	DeletedAt       *time.Time `db:"deleted_at" json:"-"`
}
