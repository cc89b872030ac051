package content

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that an update or delete target does not exist.
	ErrNotFound = errors.New("content: record not found")
	// ErrDuplicateKey indicates that a tag name is already taken.
	ErrDuplicateKey = errors.New("content: duplicate key")
	// ErrUnknownCollection indicates a collection name outside the enumerated set.
	ErrUnknownCollection = errors.New("content: unknown collection")
	// ErrInvalidRecordID indicates an empty or malformed identifier.
	ErrInvalidRecordID = errors.New("content: invalid record id")
	// ErrIDSpaceExhausted indicates that the highest numeric id is already taken.
	ErrIDSpaceExhausted = errors.New("content: numeric id space exhausted")
)

const (
	opAddNewsletter      = "content.add_newsletter"
	opUpdateNewsletter   = "content.update_newsletter"
	opDeleteNewsletter   = "content.delete_newsletter"
	opAddArticle         = "content.add_article"
	opUpdateArticle      = "content.update_article"
	opDeleteArticle      = "content.delete_article"
	opReorderArticles    = "content.reorder_articles"
	opAddTag             = "content.add_tag"
	opUpdateTag          = "content.update_tag"
	opDeleteTag          = "content.delete_tag"
	opAddTestimonial     = "content.add_testimonial"
	opUpdateTestimonial  = "content.update_testimonial"
	opDeleteTestimonial  = "content.delete_testimonial"
	opRead               = "content.read"
	opEnsureLoaded       = "content.ensure_loaded"
	opGetNewsletter      = "content.get_newsletter"
	opGetArticle         = "content.get_article"
	reasonNotFound       = "not_found"
	reasonDuplicateKey   = "duplicate_key"
	reasonUnknown        = "unknown_collection"
	reasonArchiveFailure = "archive_failed"
	reasonIDExhausted    = "id_exhausted"
)

// ServiceError attaches a stable code to a store failure.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the "<operation>.<reason>" code.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

func notFound(operation string, key any) error {
	return newServiceError(operation, reasonNotFound, fmt.Errorf("%w: %v", ErrNotFound, key))
}

func duplicateKey(operation string, key any) error {
	return newServiceError(operation, reasonDuplicateKey, fmt.Errorf("%w: %v", ErrDuplicateKey, key))
}
