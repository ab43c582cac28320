package store

import (
	"context"

	"github.com/nhle/issuetracker/internal/model"
)

// LinkFilter controls filtering and pagination for link queries.
type LinkFilter struct {
	ExecutionID *int
	DefectsOnly bool
	Limit       int
	Offset      int
}

// Store defines the persistence interface for link records.
type Store interface {
	// GetOrCreateLink returns the link matching (execution, url, is_defect),
	// creating it first if needed. created reports whether a row was inserted.
	GetOrCreateLink(ctx context.Context, link model.LinkReference) (*model.LinkReference, bool, error)
	GetLinks(ctx context.Context, filter LinkFilter) ([]model.LinkReference, error)
	GetLinkByID(ctx context.Context, id string) (*model.LinkReference, error)
	DeleteLink(ctx context.Context, id string) error
}
