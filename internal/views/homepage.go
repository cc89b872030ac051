package views

import (
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
)

const (
	latestNewsletterCount = 3
	mosaicArticleCount    = 4
)

// Homepage is the model behind the site home page.
type Homepage struct {
	Featured          *content.Article      `json:"featured"`
	Mosaic            []content.Article     `json:"mosaic"`
	Loop              []content.Article     `json:"loop"`
	Testimonials      []content.Testimonial `json:"testimonials"`
	LatestNewsletters []content.Newsletter  `json:"latestNewsletters"`
	Tags              []content.Tag         `json:"tags"`
}

// Reader is the read side of the content store used by the views.
type Reader interface {
	Snapshot() content.Snapshot
}

// BuildHomepage derives the home page from a snapshot.
func BuildHomepage(snapshot content.Snapshot) Homepage {
	page := Homepage{
		Mosaic:            []content.Article{},
		Loop:              []content.Article{},
		Testimonials:      content.ActiveTestimonials(snapshot.Testimonials),
		LatestNewsletters: []content.Newsletter{},
		Tags:              append([]content.Tag{}, snapshot.Tags...),
	}

	featured := content.ArticlesInSection(snapshot.Articles, content.ShowcaseFeatured)
	if len(featured) > 0 {
		page.Featured = &featured[0]
	}
	mosaic := content.ArticlesInSection(snapshot.Articles, content.ShowcaseMosaic)
	if len(mosaic) > mosaicArticleCount {
		mosaic = mosaic[:mosaicArticleCount]
	}
	page.Mosaic = append(page.Mosaic, mosaic...)
	page.Loop = append(page.Loop, content.ArticlesInSection(snapshot.Articles, content.ShowcaseLoop)...)

	newsletters := append([]content.Newsletter{}, snapshot.Newsletters...)
	content.SortNewslettersByDate(newsletters)
	if len(newsletters) > latestNewsletterCount {
		newsletters = newsletters[:latestNewsletterCount]
	}
	page.LatestNewsletters = append(page.LatestNewsletters, newsletters...)
	return page
}

// NewHomepage keeps a Homepage current as articles, newsletters, tags and
// testimonials change.
func NewHomepage(bus Subscriber, reader Reader) *Watcher[Homepage] {
	return Watch(bus, content.Collections, func() Homepage {
		return BuildHomepage(reader.Snapshot())
	})
}
