package lending

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field length limits, matching the storage schema.
const (
	MaxNameLength  = 255
	MaxBioLength   = 5000
	MaxTitleLength = 255
	MaxISBNLength  = 13
)

// Author is a catalog author. An author owns a collection of books via
// Book.AuthorID; the relationship is always resolved with a query, never a
// live object graph.
type Author struct {
	ID        uuid.UUID
	Name      string
	Bio       string
	CreatedAt time.Time
}

// ValidateAuthorName checks the required display name against its length limit.
func ValidateAuthorName(name string) error {
	if strings.TrimSpace(name) == "" || len(name) > MaxNameLength {
		return ErrInvalidAuthorName
	}

	return nil
}

// ValidateAuthorBio checks the optional biography against its length limit.
func ValidateAuthorBio(bio string) error {
	if len(bio) > MaxBioLength {
		return ErrInvalidAuthorBio
	}

	return nil
}
