package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lifecycle describes the logical state of a record.
type Lifecycle int

const (
	Active Lifecycle = iota
	SoftDeleted
	// HardDeleted is terminal: the row no longer exists. It is never
	// observable on a loaded Model; it completes the state machine
	// active → soft-deleted → hard-deleted.
	HardDeleted
)

// String returns the lifecycle name.
func (l Lifecycle) String() string {
	switch l {
	case Active:
		return "active"
	case SoftDeleted:
		return "soft_deleted"
	case HardDeleted:
		return "hard_deleted"
	default:
		return "unknown"
	}
}

// Model is the common base struct for all domain models.
//
// DeletedAt is a plain nullable timestamp, NOT gorm.DeletedAt: the implicit
// soft-delete scoping of gorm.DeletedAt would make the "including soft
// deleted" read variants inexpressible. Soft-delete filtering is applied
// explicitly by the repository layer instead.
type Model struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	IsActive  bool       `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at"`
}

// BeforeCreate assigns a fresh UUID when none was provided.
func (m *Model) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// State reports the lifecycle state of a loaded record.
func (m *Model) State() Lifecycle {
	if m.DeletedAt != nil {
		return SoftDeleted
	}
	return Active
}

// ListParams holds pagination, filtering, ordering, include, and join
// parameters for list queries. Filter and Join carry the decoded JSON filter
// specification (map or list form); OrderBy and Include are comma-separated
// field / relation lists.
type ListParams struct {
	Skip    int
	Limit   int
	Filter  any
	OrderBy string
	Include string
	Join    any
}

// ListResult pairs a page of items with the total count of matching rows
// computed before pagination was applied.
type ListResult[T any] struct {
	Total   int64 `json:"total"`
	Results []T   `json:"results"`
}
