package archive

import (
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
)

// rawEntry accepts the loose newsletter and article shapes found in archives.
type rawEntry struct {
	content.Entry   `yaml:",inline"`
	Slug            string                  `json:"slug" yaml:"slug"`
	IsVisible       *bool                   `json:"isVisible" yaml:"isVisible"`
	Position        int                     `json:"position" yaml:"position"`
	ShowcaseSection content.ShowcaseSection `json:"showcaseSection" yaml:"showcaseSection"`
}

type rawTestimonial struct {
	ID       content.RecordID `json:"id" yaml:"id"`
	Quote    string           `json:"quote" yaml:"quote"`
	Author   string           `json:"author" yaml:"author"`
	Role     string           `json:"role" yaml:"role"`
	Company  string           `json:"company" yaml:"company"`
	Avatar   string           `json:"avatar" yaml:"avatar"`
	IsActive bool             `json:"isActive" yaml:"isActive"`
}

type normalizer struct {
	ids IDProvider
}

func (n normalizer) entry(record Record) (rawEntry, error) {
	var raw rawEntry
	if err := record.Decode(&raw); err != nil {
		return rawEntry{}, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, record.Origin, err)
	}
	id, err := n.identifier(raw.ID, raw.Slug, raw.Title)
	if err != nil {
		return rawEntry{}, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, record.Origin, err)
	}
	raw.ID = id
	if strings.TrimSpace(raw.Content) == "" {
		raw.Content = raw.ContentHTML
	}
	if raw.Tags == nil {
		raw.Tags = []string{}
	}
	return raw, nil
}

// identifier applies the id, slug, title slug, generated fallback chain.
func (n normalizer) identifier(id content.RecordID, slug, title string) (content.RecordID, error) {
	if trimmed := strings.TrimSpace(id.String()); trimmed != "" {
		return content.RecordID(trimmed), nil
	}
	if trimmed := strings.TrimSpace(slug); trimmed != "" {
		return content.RecordID(trimmed), nil
	}
	if derived := strings.Trim(content.GenerateSlug(title), "-"); derived != "" {
		return content.RecordID(derived), nil
	}
	generated, err := n.ids.NewID()
	if err != nil {
		return "", err
	}
	return content.NewRecordID(generated)
}

func (n normalizer) newsletter(record Record) (content.Newsletter, error) {
	raw, err := n.entry(record)
	if err != nil {
		return content.Newsletter{}, err
	}
	return content.Newsletter{Entry: raw.Entry}, nil
}

func (n normalizer) article(record Record) (content.Article, error) {
	raw, err := n.entry(record)
	if err != nil {
		return content.Article{}, err
	}
	visible := true
	if raw.IsVisible != nil {
		visible = *raw.IsVisible
	}
	return content.Article{
		Entry:           raw.Entry,
		IsVisible:       visible,
		Position:        raw.Position,
		ShowcaseSection: raw.ShowcaseSection,
	}, nil
}

func (n normalizer) tag(record Record) (content.Tag, error) {
	var tag content.Tag
	if err := record.Decode(&tag); err != nil {
		return content.Tag{}, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, record.Origin, err)
	}
	tag.Name = strings.TrimSpace(tag.Name)
	if tag.Name == "" {
		return content.Tag{}, fmt.Errorf("%w: %s: tag name is required", ErrMalformedRecord, record.Origin)
	}
	return tag, nil
}

func (n normalizer) testimonial(record Record) (content.Testimonial, error) {
	var raw rawTestimonial
	if err := record.Decode(&raw); err != nil {
		return content.Testimonial{}, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, record.Origin, err)
	}
	id, ok := raw.ID.Numeric()
	if !ok {
		return content.Testimonial{}, fmt.Errorf("%w: %s: testimonial id %q is not numeric", ErrMalformedRecord, record.Origin, raw.ID)
	}
	return content.Testimonial{
		ID:       id,
		Quote:    raw.Quote,
		Author:   raw.Author,
		Role:     raw.Role,
		Company:  raw.Company,
		Avatar:   raw.Avatar,
		IsActive: raw.IsActive,
	}, nil
}
