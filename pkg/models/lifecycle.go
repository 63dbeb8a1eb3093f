package models

import "time"

// Lifecycle carries the timestamp columns shared by every table.
// Embedded by value into each entity instead of per-model mixins so the
// repositories can treat create/update/soft-delete identically.
type Lifecycle struct {
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Touch stamps creation/update times. Call with the same instant for both
// on insert.
func (l *Lifecycle) Touch(now time.Time) {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
}

// SoftDelete marks the record deleted without removing the row.
func (l *Lifecycle) SoftDelete(now time.Time) {
	l.DeletedAt = &now
	l.UpdatedAt = now
}

// IsDeleted reports whether the record has been soft-deleted.
func (l *Lifecycle) IsDeleted() bool {
	return l.DeletedAt != nil
}
