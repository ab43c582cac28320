package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/issuetracker/internal/model"
)

// ErrLinkNotFound is returned when a link lookup matches no row.
var ErrLinkNotFound = errors.New("link not found")

const linkColumns = "id, execution_id, name, url, is_defect, created_at"

// GetOrCreateLink inserts the link unless one with the same execution,
// URL and defect flag already exists, and returns the stored row. The
// store assigns the ID; any ID set by the caller is ignored.
func (s *SQLiteStore) GetOrCreateLink(
	ctx context.Context,
	link model.LinkReference,
) (*model.LinkReference, bool, error) {
	if link.URL == "" {
		return nil, false, fmt.Errorf("creating link: empty url")
	}
	link.ID = uuid.New().String()
	link.CreatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO link_references
			(id, execution_id, name, url, is_defect, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		link.ID, link.ExecutionID, link.Name, link.URL,
		boolToInt(link.IsDefect), link.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("creating link: %w", err)
	}
	rows, _ := result.RowsAffected()

	var stored model.LinkReference
	err = s.db.GetContext(ctx, &stored, `
		SELECT `+linkColumns+`
		FROM link_references
		WHERE execution_id = ? AND url = ? AND is_defect = ?`,
		link.ExecutionID, link.URL, boolToInt(link.IsDefect),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("reading link for execution %d: %w", link.ExecutionID, ErrLinkNotFound)
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading link for execution %d: %w", link.ExecutionID, err)
	}

	return &stored, rows > 0, nil
}

// GetLinks retrieves links matching the filter, oldest first.
func (s *SQLiteStore) GetLinks(
	ctx context.Context,
	filter LinkFilter,
) ([]model.LinkReference, error) {
	var conditions []string
	var args []interface{}

	if filter.ExecutionID != nil {
		conditions = append(conditions, "execution_id = ?")
		args = append(args, *filter.ExecutionID)
	}
	if filter.DefectsOnly {
		conditions = append(conditions, "is_defect = 1")
	}

	query := "SELECT " + linkColumns + " FROM link_references"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	var links []model.LinkReference
	if err := s.db.SelectContext(ctx, &links, query, args...); err != nil {
		return nil, fmt.Errorf("querying links: %w", err)
	}
	return links, nil
}

// GetLinkByID retrieves a single link by its ID.
func (s *SQLiteStore) GetLinkByID(
	ctx context.Context,
	id string,
) (*model.LinkReference, error) {
	var link model.LinkReference
	err := s.db.GetContext(ctx, &link,
		"SELECT "+linkColumns+" FROM link_references WHERE id = ?", id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("link %s: %w", id, ErrLinkNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting link %s: %w", id, err)
	}
	return &link, nil
}

// DeleteLink removes a link by ID.
func (s *SQLiteStore) DeleteLink(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM link_references WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting link %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("link %s: %w", id, ErrLinkNotFound)
	}
	return nil
}
