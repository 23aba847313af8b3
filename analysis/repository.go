package analysis

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ContentFilter selects posts by scope dimensions. Empty fields are not
// filtered on.
type ContentFilter struct {
	JourneyID         string
	JourneyWeekID     string
	MissionInstanceID string
	UserID            string
}

// ContentSource is the read surface the analysis service needs.
type ContentSource interface {
	ListContents(ctx context.Context, filter ContentFilter) ([]string, error)
}

// Posts is the full post repository.
type Posts interface {
	repository.Repository[*Post]
	ContentSource
}

type posts struct {
	repository.Repository[*Post]
	db *bun.DB
}

var (
	_ Posts                        = (*posts)(nil)
	_ repository.Repository[*Post] = (*posts)(nil)
)

// NewPostsRepository builds the bun-backed post repository.
func NewPostsRepository(db *bun.DB) Posts {
	repo := repository.NewRepository[*Post](db, repository.ModelHandlers[*Post]{
		NewRecord: func() *Post { return &Post{} },
		GetID: func(p *Post) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Post, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
	})

	return &posts{
		Repository: repo,
		db:         db,
	}
}

// ListContents returns the content column of every post matching the filter,
// oldest first so term positions are stable across runs.
func (p *posts) ListContents(ctx context.Context, filter ContentFilter) ([]string, error) {
	var contents []string
	q := p.db.NewSelect().
		Model((*Post)(nil)).
		Column("content")

	if filter.JourneyID != "" {
		q = q.Where("?TableAlias.journey_id = ?", filter.JourneyID)
	}
	if filter.JourneyWeekID != "" {
		q = q.Where("?TableAlias.journey_week_id = ?", filter.JourneyWeekID)
	}
	if filter.MissionInstanceID != "" {
		q = q.Where("?TableAlias.mission_instance_id = ?", filter.MissionInstanceID)
	}
	if filter.UserID != "" {
		q = q.Where("?TableAlias.user_id = ?", filter.UserID)
	}

	if err := q.Order("created_at ASC").Scan(ctx, &contents); err != nil {
		return nil, err
	}
	return contents, nil
}
