package analysis

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Post is a learner submission. Scope columns are nullable in the schema;
// empty strings here mean the post is not attached to that dimension.
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:post"`

	ID                uuid.UUID `bun:"id,pk,notnull" json:"id"`
	JourneyID         string    `bun:"journey_id" json:"journey_id,omitempty"`
	JourneyWeekID     string    `bun:"journey_week_id" json:"journey_week_id,omitempty"`
	MissionInstanceID string    `bun:"mission_instance_id" json:"mission_instance_id,omitempty"`
	UserID            string    `bun:"user_id,notnull" json:"user_id"`
	Content           string    `bun:"content,notnull" json:"content"`
	CreatedAt         time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
