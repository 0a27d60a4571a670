package models

import "time"

// WidgetSection is where a widget renders on the landing page.
type WidgetSection string

const (
	SectionHero         WidgetSection = "hero"
	SectionPricing      WidgetSection = "pricing"
	SectionTestimonials WidgetSection = "testimonials"
	SectionFAQ          WidgetSection = "faq"
	SectionFooter       WidgetSection = "footer"
	SectionCustom       WidgetSection = "custom"
)

// Widget is a third-party integration snippet (Elfsight, Frill, LiveAgent,
// custom embeds) placed in a landing-page section. Provider-specific
// parameters live in Config as an opaque document.
type Widget struct {
	ID              string        `db:"id" json:"id"`
	Name            string        `db:"name" json:"name"`
	IntegrationType string        `db:"integration_type" json:"integration_type"`
	Section         WidgetSection `db:"section" json:"section"`
	Config          JSONMap       `db:"config" json:"config,omitempty"`
	EmbedCode       string        `db:"embed_code" json:"embed_code"`
	IsActive        bool          `db:"is_active" json:"is_active"`
	SortOrder       int           `db:"sort_order" json:"sort_order"`
	CreatedBy       *string       `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time    `db:"deleted_at" json:"-"`
}

// Setting is a keyed site-settings document (branding, SEO, integrations).
// Values are opaque JSONB; the admin panel owns their shape.
type Setting struct {
	ID        string    `db:"id" json:"id"`
	Key       string    `db:"key" json:"key"`
	Value     JSONMap   `db:"value" json:"value"`
	UpdatedBy *string   `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
