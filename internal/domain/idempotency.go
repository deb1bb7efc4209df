package domain

import "time"

// Idempotency records the response of a completed request, keyed by
// (owner_id, scope, key). A retry with the same key gets the stored body
// back instead of triggering a second batch. Status 0 marks a request that
// is still running.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	OwnerID   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_owner_scope_key,priority:1"`
	Scope     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_owner_scope_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_owner_scope_key,priority:3"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	Body      []byte    `gorm:"type:BLOB"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// Pending reports whether the owning request has not finished yet.
func (i Idempotency) Pending() bool { return i.Status == 0 }
