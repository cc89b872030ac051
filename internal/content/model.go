package content

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Collection names one of the four record sets held by the store.
type Collection string

const (
	// CollectionNewsletters holds newsletter issues.
	CollectionNewsletters Collection = "newsletters"
	// CollectionArticles holds news articles.
	CollectionArticles Collection = "news"
	// CollectionTags holds the available topic tags.
	CollectionTags Collection = "availableTags"
	// CollectionTestimonials holds client testimonials.
	CollectionTestimonials Collection = "testimonials"
)

// Collections lists every collection in a stable order.
var Collections = []Collection{
	CollectionNewsletters,
	CollectionArticles,
	CollectionTags,
	CollectionTestimonials,
}

// ParseCollection validates a collection name.
func ParseCollection(raw string) (Collection, error) {
	candidate := Collection(strings.TrimSpace(raw))
	for _, known := range Collections {
		if candidate == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCollection, raw)
}

// String returns the collection name.
func (c Collection) String() string {
	return string(c)
}

// RecordID identifies newsletters and articles. Inputs may be numbers or strings;
// comparison always happens on the string form.
type RecordID string

// NewRecordID trims raw input and rejects empty identifiers.
func NewRecordID(raw string) (RecordID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidRecordID)
	}
	return RecordID(trimmed), nil
}

// NumericRecordID formats an integer identifier.
func NumericRecordID(value int64) RecordID {
	return RecordID(strconv.FormatInt(value, 10))
}

// String returns the identifier text.
func (id RecordID) String() string {
	return string(id)
}

// Numeric reports the integer value of the identifier when it has one.
func (id RecordID) Numeric() (int64, bool) {
	value, err := strconv.ParseInt(strings.TrimSpace(string(id)), 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// UnmarshalJSON accepts both JSON strings and JSON numbers.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*id = RecordID(strings.TrimSpace(text))
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRecordID, trimmed)
	}
	*id = RecordID(number.String())
	return nil
}

// UnmarshalYAML accepts any scalar.
func (id *RecordID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d is not a scalar", ErrInvalidRecordID, node.Line)
	}
	*id = RecordID(strings.TrimSpace(node.Value))
	return nil
}

// Image is either a bare URL or a URL with alternative text.
type Image struct {
	URL string `json:"url" yaml:"url"`
	Alt string `json:"alt,omitempty" yaml:"alt,omitempty"`
}

// MarshalJSON emits a bare string when there is no alternative text.
func (img Image) MarshalJSON() ([]byte, error) {
	if img.Alt == "" {
		return json.Marshal(img.URL)
	}
	type plain Image
	return json.Marshal(plain(img))
}

// UnmarshalJSON accepts a URL string or an {url, alt} object.
func (img *Image) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var url string
		if err := json.Unmarshal(data, &url); err != nil {
			return err
		}
		*img = Image{URL: url}
		return nil
	}
	type plain Image
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*img = Image(decoded)
	return nil
}

// UnmarshalYAML accepts a URL scalar or an {url, alt} mapping.
func (img *Image) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*img = Image{URL: node.Value}
		return nil
	}
	type plain Image
	var decoded plain
	if err := node.Decode(&decoded); err != nil {
		return err
	}
	*img = Image(decoded)
	return nil
}

// Discussion holds the key discussion of a newsletter: free text or ordered points.
type Discussion struct {
	Text   string
	Points []string
}

// MarshalJSON emits an array when points are present and a string otherwise.
func (d Discussion) MarshalJSON() ([]byte, error) {
	if d.Points != nil {
		return json.Marshal(d.Points)
	}
	return json.Marshal(d.Text)
}

// UnmarshalJSON accepts a string or an array of strings.
func (d *Discussion) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var points []string
		if err := json.Unmarshal(data, &points); err != nil {
			return err
		}
		*d = Discussion{Points: points}
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	*d = Discussion{Text: text}
	return nil
}

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (d *Discussion) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var points []string
		if err := node.Decode(&points); err != nil {
			return err
		}
		*d = Discussion{Points: points}
		return nil
	}
	*d = Discussion{Text: node.Value}
	return nil
}

// Author describes the byline of a record.
type Author struct {
	Name   string `json:"name" yaml:"name"`
	Role   string `json:"role,omitempty" yaml:"role,omitempty"`
	Avatar string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
}

// ResourceKind classifies an attached resource.
type ResourceKind string

const (
	ResourceVideo    ResourceKind = "video"
	ResourceDownload ResourceKind = "download"
	ResourceReport   ResourceKind = "report"
	ResourceGuide    ResourceKind = "guide"
)

// Resource is a link attached to a newsletter or article.
type Resource struct {
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description" yaml:"description"`
	URL         string       `json:"url" yaml:"url"`
	Kind        ResourceKind `json:"type" yaml:"type"`
}

// Entry carries the fields shared by newsletters and articles.
type Entry struct {
	ID            RecordID    `json:"id" yaml:"id"`
	Title         string      `json:"title" yaml:"title"`
	Date          string      `json:"date" yaml:"date"`
	DisplayDate   string      `json:"displayDate,omitempty" yaml:"displayDate,omitempty"`
	KeyDiscussion *Discussion `json:"keyDiscussion,omitempty" yaml:"keyDiscussion,omitempty"`
	Content       string      `json:"content,omitempty" yaml:"content,omitempty"`
	ContentHTML   string      `json:"contentHtml,omitempty" yaml:"contentHtml,omitempty"`
	Image         *Image      `json:"image,omitempty" yaml:"image,omitempty"`
	Tags          []string    `json:"tags" yaml:"tags"`
	ExternalURL   string      `json:"newsletterUrl,omitempty" yaml:"newsletterUrl,omitempty"`
	Summary       string      `json:"summary,omitempty" yaml:"summary,omitempty"`
	Category      string      `json:"category,omitempty" yaml:"category,omitempty"`
	Views         *int64      `json:"views,omitempty" yaml:"views,omitempty"`
	Author        *Author     `json:"author,omitempty" yaml:"author,omitempty"`
	LastUpdated   string      `json:"lastUpdated,omitempty" yaml:"lastUpdated,omitempty"`
	Insights      []string    `json:"insights,omitempty" yaml:"insights,omitempty"`
	Resources     []Resource  `json:"resources,omitempty" yaml:"resources,omitempty"`
}

// Newsletter is a published newsletter issue.
type Newsletter struct {
	Entry `yaml:",inline"`
}

// ShowcaseSection places an article in the news page layout.
type ShowcaseSection string

const (
	ShowcaseFeatured ShowcaseSection = "featured"
	ShowcaseMosaic   ShowcaseSection = "mosaic"
	ShowcaseLoop     ShowcaseSection = "loop"
)

// Article is a news article with layout metadata.
type Article struct {
	Entry           `yaml:",inline"`
	IsVisible       bool            `json:"isVisible" yaml:"isVisible"`
	Position        int             `json:"position" yaml:"position"`
	ShowcaseSection ShowcaseSection `json:"showcaseSection,omitempty" yaml:"showcaseSection,omitempty"`
}

// Tag is a topic label keyed by name.
type Tag struct {
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// Testimonial is a client quote shown on the site.
type Testimonial struct {
	ID       int64  `json:"id" yaml:"id"`
	Quote    string `json:"quote" yaml:"quote"`
	Author   string `json:"author" yaml:"author"`
	Role     string `json:"role" yaml:"role"`
	Company  string `json:"company,omitempty" yaml:"company,omitempty"`
	Avatar   string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	IsActive bool   `json:"isActive" yaml:"isActive"`
}

// NewsletterPage wraps the newsletter collection for reads.
type NewsletterPage struct {
	Items []Newsletter `json:"items"`
}

// ArticlePage wraps the article collection for reads.
type ArticlePage struct {
	Items []Article `json:"items"`
}

// Snapshot is a copy of every collection.
type Snapshot struct {
	Newsletters  []Newsletter  `json:"newsletters" yaml:"newsletters"`
	Articles     []Article     `json:"news" yaml:"news"`
	Tags         []Tag         `json:"availableTags" yaml:"availableTags"`
	Testimonials []Testimonial `json:"testimonials" yaml:"testimonials"`
}

// Clone returns a copy that shares no slices with s.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Newsletters:  cloneNewsletters(s.Newsletters),
		Articles:     cloneArticles(s.Articles),
		Tags:         append([]Tag{}, s.Tags...),
		Testimonials: append([]Testimonial{}, s.Testimonials...),
	}
}

func cloneEntry(entry Entry) Entry {
	copied := entry
	if entry.Tags != nil {
		copied.Tags = append([]string{}, entry.Tags...)
	}
	if entry.Insights != nil {
		copied.Insights = append([]string{}, entry.Insights...)
	}
	if entry.Resources != nil {
		copied.Resources = append([]Resource{}, entry.Resources...)
	}
	if entry.KeyDiscussion != nil {
		discussion := *entry.KeyDiscussion
		if discussion.Points != nil {
			discussion.Points = append([]string{}, discussion.Points...)
		}
		copied.KeyDiscussion = &discussion
	}
	if entry.Image != nil {
		image := *entry.Image
		copied.Image = &image
	}
	if entry.Author != nil {
		author := *entry.Author
		copied.Author = &author
	}
	if entry.Views != nil {
		views := *entry.Views
		copied.Views = &views
	}
	return copied
}

func cloneNewsletters(items []Newsletter) []Newsletter {
	copies := make([]Newsletter, len(items))
	for index, item := range items {
		copies[index] = Newsletter{Entry: cloneEntry(item.Entry)}
	}
	return copies
}

func cloneArticles(items []Article) []Article {
	copies := make([]Article, len(items))
	for index, item := range items {
		copied := item
		copied.Entry = cloneEntry(item.Entry)
		copies[index] = copied
	}
	return copies
}
