package content

// EntryPatch lists the shared fields an update may overwrite. Nil fields are retained.
type EntryPatch struct {
	Title         *string     `json:"title,omitempty"`
	Date          *string     `json:"date,omitempty"`
	DisplayDate   *string     `json:"displayDate,omitempty"`
	KeyDiscussion *Discussion `json:"keyDiscussion,omitempty"`
	Content       *string     `json:"content,omitempty"`
	ContentHTML   *string     `json:"contentHtml,omitempty"`
	Image         *Image      `json:"image,omitempty"`
	Tags          *[]string   `json:"tags,omitempty"`
	ExternalURL   *string     `json:"newsletterUrl,omitempty"`
	Summary       *string     `json:"summary,omitempty"`
	Category      *string     `json:"category,omitempty"`
	Views         *int64      `json:"views,omitempty"`
	Author        *Author     `json:"author,omitempty"`
	LastUpdated   *string     `json:"lastUpdated,omitempty"`
	Insights      *[]string   `json:"insights,omitempty"`
	Resources     *[]Resource `json:"resources,omitempty"`
}

// NewsletterPatch is a partial newsletter update.
type NewsletterPatch struct {
	EntryPatch
}

// ArticlePatch is a partial article update.
type ArticlePatch struct {
	EntryPatch
	IsVisible       *bool            `json:"isVisible,omitempty"`
	Position        *int             `json:"position,omitempty"`
	ShowcaseSection *ShowcaseSection `json:"showcaseSection,omitempty"`
}

// TagPatch is a partial tag update. Setting Name renames the tag.
type TagPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// TestimonialPatch is a partial testimonial update.
type TestimonialPatch struct {
	Quote    *string `json:"quote,omitempty"`
	Author   *string `json:"author,omitempty"`
	Role     *string `json:"role,omitempty"`
	Company  *string `json:"company,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

func (p EntryPatch) apply(entry Entry) Entry {
	merged := entry
	if p.Title != nil {
		merged.Title = *p.Title
	}
	if p.Date != nil {
		merged.Date = *p.Date
	}
	if p.DisplayDate != nil {
		merged.DisplayDate = *p.DisplayDate
	}
	if p.KeyDiscussion != nil {
		discussion := *p.KeyDiscussion
		merged.KeyDiscussion = &discussion
	}
	if p.Content != nil {
		merged.Content = *p.Content
	}
	if p.ContentHTML != nil {
		merged.ContentHTML = *p.ContentHTML
	}
	if p.Image != nil {
		image := *p.Image
		merged.Image = &image
	}
	if p.Tags != nil {
		merged.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.ExternalURL != nil {
		merged.ExternalURL = *p.ExternalURL
	}
	if p.Summary != nil {
		merged.Summary = *p.Summary
	}
	if p.Category != nil {
		merged.Category = *p.Category
	}
	if p.Views != nil {
		views := *p.Views
		merged.Views = &views
	}
	if p.Author != nil {
		author := *p.Author
		merged.Author = &author
	}
	if p.LastUpdated != nil {
		merged.LastUpdated = *p.LastUpdated
	}
	if p.Insights != nil {
		merged.Insights = append([]string{}, (*p.Insights)...)
	}
	if p.Resources != nil {
		merged.Resources = append([]Resource{}, (*p.Resources)...)
	}
	return merged
}

func (p NewsletterPatch) apply(newsletter Newsletter) Newsletter {
	return Newsletter{Entry: p.EntryPatch.apply(newsletter.Entry)}
}

func (p ArticlePatch) apply(article Article) Article {
	merged := article
	merged.Entry = p.EntryPatch.apply(article.Entry)
	if p.IsVisible != nil {
		merged.IsVisible = *p.IsVisible
	}
	if p.Position != nil {
		merged.Position = *p.Position
	}
	if p.ShowcaseSection != nil {
		merged.ShowcaseSection = *p.ShowcaseSection
	}
	return merged
}

func (p TagPatch) apply(tag Tag) Tag {
	merged := tag
	if p.Name != nil {
		merged.Name = *p.Name
	}
	if p.Color != nil {
		merged.Color = *p.Color
	}
	return merged
}

func (p TestimonialPatch) apply(testimonial Testimonial) Testimonial {
	merged := testimonial
	if p.Quote != nil {
		merged.Quote = *p.Quote
	}
	if p.Author != nil {
		merged.Author = *p.Author
	}
	if p.Role != nil {
		merged.Role = *p.Role
	}
	if p.Company != nil {
		merged.Company = *p.Company
	}
	if p.Avatar != nil {
		merged.Avatar = *p.Avatar
	}
	if p.IsActive != nil {
		merged.IsActive = *p.IsActive
	}
	return merged
}
