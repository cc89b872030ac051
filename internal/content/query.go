package content

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	defaultWordsPerMinute = 200
	relatedLimit          = 4
	maxTitleLength        = 120
	maxSummaryLength      = 300
)

var (
	markupPattern      = regexp.MustCompile(`<[^>]*>`)
	slugStripPattern   = regexp.MustCompile(`[^\w\s-]`)
	slugSpacePattern   = regexp.MustCompile(`\s+`)
	slugHyphenPattern  = regexp.MustCompile(`-+`)
	earliestFilterDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	latestFilterDate   = time.Date(2100, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// SortNewslettersByDate orders newsletters most recent first, keeping the
// relative order of equal or unparseable dates.
func SortNewslettersByDate(items []Newsletter) {
	sort.SliceStable(items, func(i, j int) bool {
		return newerFirst(items[i].Date, items[j].Date)
	})
}

// SortArticlesByDate orders articles most recent first.
func SortArticlesByDate(items []Article) {
	sort.SliceStable(items, func(i, j int) bool {
		return newerFirst(items[i].Date, items[j].Date)
	})
}

// ActiveTestimonials keeps active testimonials in their original order.
func ActiveTestimonials(items []Testimonial) []Testimonial {
	active := make([]Testimonial, 0, len(items))
	for _, item := range items {
		if item.IsActive {
			active = append(active, item)
		}
	}
	return active
}

// VisibleArticles keeps visible articles ordered by display position.
func VisibleArticles(items []Article) []Article {
	visible := make([]Article, 0, len(items))
	for _, item := range items {
		if item.IsVisible {
			visible = append(visible, item)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Position < visible[j].Position
	})
	return visible
}

// ArticlesInSection keeps visible articles placed in section.
func ArticlesInSection(items []Article, section ShowcaseSection) []Article {
	placed := make([]Article, 0)
	for _, item := range VisibleArticles(items) {
		if item.ShowcaseSection == section {
			placed = append(placed, item)
		}
	}
	return placed
}

// RelatedNewsletters returns up to four newsletters sharing a tag with tags,
// excluding currentID.
func RelatedNewsletters(items []Newsletter, tags []string, currentID RecordID) []Newsletter {
	wanted := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		wanted[tag] = struct{}{}
	}
	related := make([]Newsletter, 0, relatedLimit)
	for _, item := range items {
		if item.ID.String() == currentID.String() {
			continue
		}
		for _, tag := range item.Tags {
			if _, ok := wanted[tag]; ok {
				related = append(related, item)
				break
			}
		}
		if len(related) == relatedLimit {
			break
		}
	}
	return related
}

// SortOrder selects the ordering applied by FilterArticles.
type SortOrder string

const (
	SortDateDesc  SortOrder = "date-desc"
	SortDateAsc   SortOrder = "date-asc"
	SortTitleAsc  SortOrder = "title-asc"
	SortTitleDesc SortOrder = "title-desc"
	SortViewsDesc SortOrder = "views-desc"
)

// FilterOptions narrows an article listing. Zero values disable a criterion.
type FilterOptions struct {
	Query      string
	Categories []string
	Tags       []string
	StartDate  string
	EndDate    string
	SortBy     SortOrder
}

// FilterArticles applies options to a copy of items.
func FilterArticles(items []Article, options FilterOptions) []Article {
	filtered := make([]Article, 0, len(items))
	query := strings.ToLower(strings.TrimSpace(options.Query))
	start, end := earliestFilterDate, latestFilterDate
	if parsed, ok := ParseDate(options.StartDate); ok {
		start = parsed
	}
	if parsed, ok := ParseDate(options.EndDate); ok {
		end = parsed
	}
	dateFiltered := strings.TrimSpace(options.StartDate) != "" || strings.TrimSpace(options.EndDate) != ""

	for _, item := range items {
		if query != "" && !matchesQuery(item, query) {
			continue
		}
		if len(options.Categories) > 0 && (item.Category == "" || !contains(options.Categories, item.Category)) {
			continue
		}
		if len(options.Tags) > 0 && !sharesAny(item.Tags, options.Tags) {
			continue
		}
		if dateFiltered {
			published, ok := ParseDate(item.Date)
			if !ok || published.Before(start) || published.After(end) {
				continue
			}
		}
		filtered = append(filtered, item)
	}

	switch options.SortBy {
	case "":
	case SortDateAsc:
		sort.SliceStable(filtered, func(i, j int) bool {
			return newerFirst(filtered[j].Date, filtered[i].Date)
		})
	case SortTitleAsc:
		sort.SliceStable(filtered, func(i, j int) bool {
			return strings.ToLower(filtered[i].Title) < strings.ToLower(filtered[j].Title)
		})
	case SortTitleDesc:
		sort.SliceStable(filtered, func(i, j int) bool {
			return strings.ToLower(filtered[i].Title) > strings.ToLower(filtered[j].Title)
		})
	case SortViewsDesc:
		sort.SliceStable(filtered, func(i, j int) bool {
			return viewsOf(filtered[i].Entry) > viewsOf(filtered[j].Entry)
		})
	default:
		SortArticlesByDate(filtered)
	}
	return filtered
}

// Stats summarizes an article listing.
type Stats struct {
	Total        int            `json:"total"`
	Categories   map[string]int `json:"categories"`
	Tags         map[string]int `json:"tags"`
	TotalViews   int64          `json:"totalViews"`
	AverageViews int64          `json:"averageViews"`
	MostViewed   *Article       `json:"mostViewed"`
	MostRecent   *Article       `json:"mostRecent"`
}

// ComputeStats counts categories, tags and views across items.
func ComputeStats(items []Article) Stats {
	stats := Stats{
		Total:      len(items),
		Categories: map[string]int{},
		Tags:       map[string]int{},
	}
	for index := range items {
		item := items[index]
		if item.Category != "" {
			stats.Categories[item.Category]++
		}
		for _, tag := range item.Tags {
			stats.Tags[tag]++
		}
		views := viewsOf(item.Entry)
		stats.TotalViews += views
		if stats.MostViewed == nil || views > viewsOf(stats.MostViewed.Entry) {
			stats.MostViewed = &items[index]
		}
		if stats.MostRecent == nil || newerFirst(item.Date, stats.MostRecent.Date) {
			stats.MostRecent = &items[index]
		}
	}
	if len(items) > 0 {
		stats.AverageViews = int64(math.Round(float64(stats.TotalViews) / float64(len(items))))
	}
	return stats
}

// EstimateReadingTime returns whole minutes to read markup at wordsPerMinute,
// never less than one. A non-positive rate falls back to 200.
func EstimateReadingTime(markup string, wordsPerMinute int) int {
	if wordsPerMinute <= 0 {
		wordsPerMinute = defaultWordsPerMinute
	}
	words := len(strings.Fields(extractText(markup)))
	minutes := int(math.Ceil(float64(words) / float64(wordsPerMinute)))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// extractText strips markup tags.
func extractText(markup string) string {
	return strings.TrimSpace(markupPattern.ReplaceAllString(markup, ""))
}

// GenerateSlug turns a title into a lowercase, hyphenated slug.
func GenerateSlug(title string) string {
	slug := strings.ToLower(title)
	slug = slugStripPattern.ReplaceAllString(slug, "")
	slug = slugSpacePattern.ReplaceAllString(slug, "-")
	slug = slugHyphenPattern.ReplaceAllString(slug, "-")
	return strings.TrimSpace(slug)
}

// ValidateArticle lists problems with an article draft. The store never calls
// it; admin surfaces and the archive importer do.
func ValidateArticle(article Article) []string {
	var problems []string
	if strings.TrimSpace(article.Title) == "" {
		problems = append(problems, "Title is required")
	}
	if strings.TrimSpace(article.Summary) == "" {
		problems = append(problems, "Summary is required")
	}
	if strings.TrimSpace(article.Content) == "" {
		problems = append(problems, "Content is required")
	}
	if strings.TrimSpace(article.Category) == "" {
		problems = append(problems, "Category is required")
	}
	if strings.TrimSpace(article.Date) == "" {
		problems = append(problems, "Date is required")
	}
	if len(article.Title) > maxTitleLength {
		problems = append(problems, "Title should be under 120 characters")
	}
	if len(article.Summary) > maxSummaryLength {
		problems = append(problems, "Summary should be under 300 characters")
	}
	if article.Image != nil {
		if article.Image.URL == "" {
			problems = append(problems, "Image should have a url")
		} else if !strings.HasPrefix(article.Image.URL, "http") {
			problems = append(problems, "Image URL should start with http/https")
		}
	}
	return problems
}

func matchesQuery(item Article, query string) bool {
	if strings.Contains(strings.ToLower(item.Title), query) ||
		strings.Contains(strings.ToLower(item.Summary), query) ||
		strings.Contains(strings.ToLower(item.Category), query) {
		return true
	}
	for _, tag := range item.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func viewsOf(entry Entry) int64 {
	if entry.Views == nil {
		return 0
	}
	return *entry.Views
}

func contains(values []string, candidate string) bool {
	for _, value := range values {
		if value == candidate {
			return true
		}
	}
	return false
}

func sharesAny(left, right []string) bool {
	for _, value := range left {
		if contains(right, value) {
			return true
		}
	}
	return false
}
