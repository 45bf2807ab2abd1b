package journal

import (
	"time"

	"gorm.io/datatypes"

	"github.com/distsim/transformsync/pkg/core"
)

// AppliedSnapshot is one accepted remote snapshot, persisted for replay and
// session forensics. Raw keeps the wire bytes; Transform the decoded state.
type AppliedSnapshot struct {
	ID        uint          `gorm:"primarykey"`
	ObjectID  core.ObjectID `gorm:"index"`
	Timestamp float64       `gorm:"index"`
	Transform datatypes.JSON
	Raw       []byte
	CreatedAt time.Time
}

// Models lists every journal table for schema migration.
var Models = []any{
	&AppliedSnapshot{},
}
