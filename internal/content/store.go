package content

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/events"
	"go.uber.org/zap"
)

var noOpLogger = zap.NewNop()

// Notification is the bus payload published after every mutation.
type Notification = events.Mutation[Snapshot]

// Publisher receives store mutations. *events.Bus[Snapshot] satisfies it.
type Publisher interface {
	Announce(mutation events.Mutation[Snapshot])
}

// ArchiveBatch carries the static records found for one collection.
type ArchiveBatch struct {
	Newsletters  []Newsletter
	Articles     []Article
	Tags         []Tag
	Testimonials []Testimonial
}

// ArchiveSource supplies static records for the one-time merge. A source may
// return a partial batch together with an error; the store keeps what it got.
type ArchiveSource interface {
	Load(ctx context.Context, collection Collection) (ArchiveBatch, error)
}

// StoreConfig describes the dependencies of a Store.
type StoreConfig struct {
	Publisher Publisher
	Archive   ArchiveSource
	Clock     func() time.Time
	Logger    *zap.Logger
	// DevMode enables logging of archive failures, which are otherwise silent.
	DevMode bool
	// Seed, when set, is copied into the store at construction.
	Seed *Snapshot
}

// Store is the single source of truth for the four content collections.
type Store struct {
	mu           sync.RWMutex
	loadMu       sync.Mutex
	newsletters  []Newsletter
	articles     []Article
	tags         []Tag
	testimonials []Testimonial
	loaded       map[Collection]bool

	publisher Publisher
	archive   ArchiveSource
	clock     func() time.Time
	logger    *zap.Logger
	devMode   bool
}

// NewStore constructs a store, applying the optional seed.
func NewStore(cfg StoreConfig) *Store {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	store := &Store{
		loaded:    make(map[Collection]bool, len(Collections)),
		publisher: cfg.Publisher,
		archive:   cfg.Archive,
		clock:     clock,
		logger:    logger,
		devMode:   cfg.DevMode,
	}
	if cfg.Seed != nil {
		store.replaceLocked(cfg.Seed.Clone())
	}
	return store
}

// Newsletters returns the newsletter collection wrapped as {items}.
func (s *Store) Newsletters() NewsletterPage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return NewsletterPage{Items: cloneNewsletters(s.newsletters)}
}

// Articles returns the article collection wrapped as {items}.
func (s *Store) Articles() ArticlePage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ArticlePage{Items: cloneArticles(s.articles)}
}

// Tags returns the tag collection in insertion order.
func (s *Store) Tags() []Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Tag{}, s.tags...)
}

// Testimonials returns the testimonial collection in insertion order.
func (s *Store) Testimonials() []Testimonial {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Testimonial{}, s.testimonials...)
}

// Read returns the snapshot of one collection: NewsletterPage, ArticlePage,
// []Tag or []Testimonial.
func (s *Store) Read(collection Collection) (any, error) {
	switch collection {
	case CollectionNewsletters:
		return s.Newsletters(), nil
	case CollectionArticles:
		return s.Articles(), nil
	case CollectionTags:
		return s.Tags(), nil
	case CollectionTestimonials:
		return s.Testimonials(), nil
	default:
		return nil, newServiceError(opRead, reasonUnknown, ErrUnknownCollection)
	}
}

// Snapshot returns a copy of every collection.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Newsletter returns a single newsletter by identifier.
func (s *Store) Newsletter(id RecordID) (Newsletter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	index := s.newsletterIndex(id)
	if index < 0 {
		return Newsletter{}, notFound(opGetNewsletter, id)
	}
	return Newsletter{Entry: cloneEntry(s.newsletters[index].Entry)}, nil
}

// Article returns a single article by identifier.
func (s *Store) Article(id RecordID) (Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	index := s.articleIndex(id)
	if index < 0 {
		return Article{}, notFound(opGetArticle, id)
	}
	return cloneArticles(s.articles[index : index+1])[0], nil
}

// AddNewsletter appends newsletter under the next numeric identifier.
func (s *Store) AddNewsletter(newsletter Newsletter) (RecordID, error) {
	s.mu.Lock()
	next, err := nextNumericID(newsletterIDs(s.newsletters))
	if err != nil {
		s.mu.Unlock()
		return "", newServiceError(opAddNewsletter, reasonIDExhausted, err)
	}
	added := Newsletter{Entry: cloneEntry(newsletter.Entry)}
	added.ID = NumericRecordID(next)
	if added.Tags == nil {
		added.Tags = []string{}
	}
	s.newsletters = append(s.newsletters, added)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.announce(CollectionNewsletters, events.OperationAdd, added.ID.String(), snapshot)
	return added.ID, nil
}

// UpdateNewsletter shallow-merges patch onto the newsletter with id.
func (s *Store) UpdateNewsletter(id RecordID, patch NewsletterPatch) (Newsletter, error) {
	s.mu.Lock()
	index := s.newsletterIndex(id)
	if index < 0 {
		s.mu.Unlock()
		return Newsletter{}, notFound(opUpdateNewsletter, id)
	}
	updated := patch.apply(s.newsletters[index])
	s.newsletters[index] = updated
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.announce(CollectionNewsletters, events.OperationUpdate, id.String(), snapshot)
	return Newsletter{Entry: cloneEntry(updated.Entry)}, nil
}

// DeleteNewsletter removes the newsletter with id.
func (s *Store) DeleteNewsletter(id RecordID) error {
	s.mu.Lock()
	index := s.newsletterIndex(id)
	if index < 0 {
		s.mu.Unlock()
		return notFound(opDeleteNewsletter, id)
	}
	s.newsletters = append(s.newsletters[:index:index], s.newsletters[index+1:]...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.announce(CollectionNewsletters, events.OperationDelete, id.String(), snapshot)
	return nil
}

// AddArticle appends article under the next numeric identifier. New articles are
// visible and positioned after the existing ones.
func (s *Store) AddArticle(article Article) (RecordID, error) {
	s.mu.Lock()
	next, err := nextNumericID(articleIDs(s.articles))
	if err != nil {
		s.mu.Unlock()
		return "", newServiceError(opAddArticle, reasonIDExhausted, err)
	}
	added := cloneArticles([]Article{article})[0]
	added.ID = NumericRecordID(next)
	added.IsVisible = true
	added.Position = len(s.articles) + 1
	if added.Tags == nil {
		added.Tags = []string{}
	}
	s.articles = append(s.articles, added)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.announce(CollectionArticles, events.OperationAdd, added.ID.String(), snapshot)
	return added.ID, nil
}

// UpdateArticle shallow-merges patch onto the article with id.
func (s *Store) UpdateArticle(id RecordID, patch ArticlePatch) (Article, error) {
	s.mu.Lock()
	index := s.articleIndex(id)
	if index < 0 {
		s.mu.Unlock()
		return Article{}, notFound(opUpdateArticle, id)
	}
	updated := patch.apply(s.articles[index])
	s.articles[index] = updated
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.announce(CollectionArticles, events.OperationUpdate, id.String(), snapshot)
	return cloneArticles([]Article{updated})[0], nil
}

// DeleteArticle removes the article with id.
func (s *Store) DeleteArticle(id RecordID) error {
	s.mu.Lock()
	index := s.articleIndex(id)
	if index < 0 {
		s.mu.Unlock()
		return notFound(opDeleteArticle, id)
	}
	s.articles = append(s.articles[:index:index], s.articles[index+1:]...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.announce(CollectionArticles, events.OperationDelete, id.String(), snapshot)
	return nil
}

// ArticlePosition assigns a display position to an article.
type ArticlePosition struct {
	ID       RecordID `json:"id"`
	Position int      `json:"position"`
}

// ReorderArticles applies every position or none of them.
func (s *Store) ReorderArticles(positions []ArticlePosition) error {
	if len(positions) == 0 {
		return nil
	}
	s.mu.Lock()
	indexes := make([]int, len(positions))
	for offset, position := range positions {
		index := s.articleIndex(position.ID)
		if index < 0 {
			s.mu.Unlock()
			return notFound(opReorderArticles, position.ID)
		}
		indexes[offset] = index
	}
	for offset, index := range indexes {
		s.articles[index].Position = positions[offset].Position
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.announce(CollectionArticles, events.OperationUpdate, "", snapshot)
	return nil
}

// AddTag appends tag. An existing name yields ErrDuplicateKey and leaves the
// collection untouched.
func (s *Store) AddTag(tag Tag) error {
	s.mu.Lock()
	if s.tagIndex(tag.Name) >= 0 {
		s.mu.Unlock()
		return duplicateKey(opAddTag, tag.Name)
	}
	s.tags = append(s.tags, tag)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.announce(CollectionTags, events.OperationAdd, tag.Name, snapshot)
	return nil
}

// UpdateTag merges patch onto the tag named oldName. A rename onto another
// existing name yields ErrDuplicateKey.
func (s *Store) UpdateTag(oldName string, patch TagPatch) (Tag, error) {
	s.mu.Lock()
	index := s.tagIndex(oldName)
	if index < 0 {
		s.mu.Unlock()
		return Tag{}, notFound(opUpdateTag, oldName)
	}
	updated := patch.apply(s.tags[index])
	if updated.Name != oldName && s.tagIndex(updated.Name) >= 0 {
		s.mu.Unlock()
		return Tag{}, duplicateKey(opUpdateTag, updated.Name)
	}
	s.tags[index] = updated
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.announce(CollectionTags, events.OperationUpdate, updated.Name, snapshot)
	return updated, nil
}

// DeleteTag removes the tag named name.
func (s *Store) DeleteTag(name string) error {
	s.mu.Lock()
	index := s.tagIndex(name)
	if index < 0 {
		s.mu.Unlock()
		return notFound(opDeleteTag, name)
	}
	s.tags = append(s.tags[:index:index], s.tags[index+1:]...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.announce(CollectionTags, events.OperationDelete, name, snapshot)
	return nil
}

// AddTestimonial appends testimonial under the next identifier.
func (s *Store) AddTestimonial(testimonial Testimonial) (int64, error) {
	s.mu.Lock()
	next, err := nextNumericID(testimonialIDs(s.testimonials))
	if err != nil {
		s.mu.Unlock()
		return 0, newServiceError(opAddTestimonial, reasonIDExhausted, err)
	}
	added := testimonial
	added.ID = next
	s.testimonials = append(s.testimonials, added)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.announce(CollectionTestimonials, events.OperationAdd, NumericRecordID(added.ID).String(), snapshot)
	return added.ID, nil
}

// UpdateTestimonial merges patch onto the testimonial with id.
func (s *Store) UpdateTestimonial(id int64, patch TestimonialPatch) (Testimonial, error) {
	s.mu.Lock()
	index := s.testimonialIndex(id)
	if index < 0 {
		s.mu.Unlock()
		return Testimonial{}, notFound(opUpdateTestimonial, id)
	}
	updated := patch.apply(s.testimonials[index])
	s.testimonials[index] = updated
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.announce(CollectionTestimonials, events.OperationUpdate, NumericRecordID(id).String(), snapshot)
	return updated, nil
}

// DeleteTestimonial removes the testimonial with id.
func (s *Store) DeleteTestimonial(id int64) error {
	s.mu.Lock()
	index := s.testimonialIndex(id)
	if index < 0 {
		s.mu.Unlock()
		return notFound(opDeleteTestimonial, id)
	}
	s.testimonials = append(s.testimonials[:index:index], s.testimonials[index+1:]...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.announce(CollectionTestimonials, events.OperationDelete, NumericRecordID(id).String(), snapshot)
	return nil
}

// Reset clears every collection and archive flag, then copies seed in when it
// is not nil.
func (s *Store) Reset(seed *Snapshot) {
	s.loadMu.Lock()
	s.mu.Lock()
	s.newsletters = nil
	s.articles = nil
	s.tags = nil
	s.testimonials = nil
	s.loaded = make(map[Collection]bool, len(Collections))
	if seed != nil {
		s.replaceLocked(seed.Clone())
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.loadMu.Unlock()

	s.announce("", events.OperationReset, "", snapshot)
}

// Loaded reports whether the archive merge already ran for collection.
func (s *Store) Loaded(collection Collection) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded[collection]
}

// EnsureAllLoaded runs EnsureLoaded for every collection.
func (s *Store) EnsureAllLoaded(ctx context.Context) {
	for _, collection := range Collections {
		_ = s.EnsureLoaded(ctx, collection)
	}
}

// EnsureLoaded merges the archive into collection the first time it is called
// for that collection. Archive failures are never returned; the only error is
// an unknown collection name.
func (s *Store) EnsureLoaded(ctx context.Context, collection Collection) error {
	if _, err := ParseCollection(string(collection)); err != nil {
		return newServiceError(opEnsureLoaded, reasonUnknown, err)
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if s.Loaded(collection) {
		return nil
	}

	var (
		batch   ArchiveBatch
		loadErr error
	)
	if s.archive != nil {
		batch, loadErr = s.archive.Load(ctx, collection)
	}

	s.mu.Lock()
	imported := s.mergeLocked(collection, batch)
	s.loaded[collection] = true
	s.mu.Unlock()

	if loadErr != nil && s.devMode {
		s.logger.Warn("archive load failed",
			zap.String("operation", opEnsureLoaded),
			zap.String("reason", reasonArchiveFailure),
			zap.String("collection", collection.String()),
			zap.Error(loadErr))
	}
	s.logger.Debug("archive merged",
		zap.String("collection", collection.String()),
		zap.Int("imported", imported))
	return nil
}

func (s *Store) mergeLocked(collection Collection, batch ArchiveBatch) int {
	switch collection {
	case CollectionNewsletters:
		seen := idSet(newsletterIDs(s.newsletters))
		imported := 0
		for _, candidate := range batch.Newsletters {
			key := candidate.ID.String()
			if _, exists := seen[key]; exists {
				continue
			}
			seen[key] = struct{}{}
			s.newsletters = append(s.newsletters, Newsletter{Entry: cloneEntry(candidate.Entry)})
			imported++
		}
		if imported > 0 {
			SortNewslettersByDate(s.newsletters)
		}
		return imported
	case CollectionArticles:
		seen := idSet(articleIDs(s.articles))
		imported := 0
		for _, candidate := range batch.Articles {
			key := candidate.ID.String()
			if _, exists := seen[key]; exists {
				continue
			}
			seen[key] = struct{}{}
			s.articles = append(s.articles, cloneArticles([]Article{candidate})[0])
			imported++
		}
		if imported > 0 {
			SortArticlesByDate(s.articles)
		}
		return imported
	case CollectionTags:
		imported := 0
		for _, candidate := range batch.Tags {
			if candidate.Name == "" || s.tagIndex(candidate.Name) >= 0 {
				continue
			}
			s.tags = append(s.tags, candidate)
			imported++
		}
		return imported
	case CollectionTestimonials:
		imported := 0
		for _, candidate := range batch.Testimonials {
			if s.testimonialIndex(candidate.ID) >= 0 {
				continue
			}
			s.testimonials = append(s.testimonials, candidate)
			imported++
		}
		return imported
	default:
		return 0
	}
}

func (s *Store) replaceLocked(seed Snapshot) {
	s.newsletters = seed.Newsletters
	s.articles = seed.Articles
	s.tags = seed.Tags
	s.testimonials = seed.Testimonials
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Newsletters:  s.newsletters,
		Articles:     s.articles,
		Tags:         s.tags,
		Testimonials: s.testimonials,
	}.Clone()
}

func (s *Store) announce(collection Collection, operation events.Operation, id string, snapshot Snapshot) {
	if s.publisher == nil {
		return
	}
	s.publisher.Announce(Notification{
		Section:   collection.String(),
		Operation: operation,
		ID:        id,
		Timestamp: s.clock().UTC(),
		Snapshot:  snapshot,
	})
}

func (s *Store) newsletterIndex(id RecordID) int {
	for index, newsletter := range s.newsletters {
		if newsletter.ID.String() == id.String() {
			return index
		}
	}
	return -1
}

func (s *Store) articleIndex(id RecordID) int {
	for index, article := range s.articles {
		if article.ID.String() == id.String() {
			return index
		}
	}
	return -1
}

func (s *Store) tagIndex(name string) int {
	for index, tag := range s.tags {
		if tag.Name == name {
			return index
		}
	}
	return -1
}

func (s *Store) testimonialIndex(id int64) int {
	for index, testimonial := range s.testimonials {
		if testimonial.ID == id {
			return index
		}
	}
	return -1
}

func newsletterIDs(items []Newsletter) []RecordID {
	ids := make([]RecordID, len(items))
	for index, item := range items {
		ids[index] = item.ID
	}
	return ids
}

func articleIDs(items []Article) []RecordID {
	ids := make([]RecordID, len(items))
	for index, item := range items {
		ids[index] = item.ID
	}
	return ids
}

func testimonialIDs(items []Testimonial) []RecordID {
	ids := make([]RecordID, len(items))
	for index, item := range items {
		ids[index] = NumericRecordID(item.ID)
	}
	return ids
}

// nextNumericID returns max(numeric ids)+1, or 1 when none are numeric.
func nextNumericID(ids []RecordID) (int64, error) {
	var highest int64
	for _, id := range ids {
		if value, ok := id.Numeric(); ok && value > highest {
			highest = value
		}
	}
	if highest == math.MaxInt64 {
		return 0, ErrIDSpaceExhausted
	}
	return highest + 1, nil
}

func idSet(ids []RecordID) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id.String()] = struct{}{}
	}
	return set
}

// IsNotFound reports whether err is a missing-record failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateKey reports whether err is a tag name collision.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}
