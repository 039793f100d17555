package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OperatorRole enumerates allowed roles.
type OperatorRole string

const (
	RoleAdmin    OperatorRole = "ADMIN"    // manages operators and streams
	RoleOperator OperatorRole = "OPERATOR" // creates and advances streams
	RoleViewer   OperatorRole = "VIEWER"   // read-only
)

// Valid reports whether r is a known role.
func (r OperatorRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	}
	return false
}

// OperatorStatus enumerates account states.
type OperatorStatus string

const (
	StatusActive   OperatorStatus = "Active"
	StatusInactive OperatorStatus = "Inactive"
	StatusLocked   OperatorStatus = "Locked"
)

// Operator is an account allowed to use the API.
type Operator struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string         `gorm:"uniqueIndex;not null" json:"username"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Role         OperatorRole   `gorm:"not null" json:"role"`
	Status       OperatorStatus `gorm:"not null;default:'Active'" json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Stream is one persisted generator. State holds the engine checkpoint:
// the binary state of a nasam1024 stream, or the sealed record of a csprng
// stream. It never leaves the server.
type Stream struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Engine      string     `gorm:"not null;index" json:"engine"`
	Label       string     `gorm:"index;uniqueIndex:idx_streams_csprng_label,where:engine = 'csprng' AND label <> '' AND parent_id IS NULL" json:"label,omitempty"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Jumps       int        `gorm:"not null;default:0" json:"jumps"` // jumps from the parent at split time
	State       []byte     `gorm:"not null" json:"-"`
	Fingerprint string     `gorm:"not null" json:"fingerprint"`
	Revision    uint64     `gorm:"not null;default:0" json:"revision"` // bumped on every checkpoint
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null;index" json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// KeyedByLabel reports whether the stream's key was derived from its label
// alone. Such labels are unique: two of them would share a keystream.
func (s *Stream) KeyedByLabel() bool {
	return s.Engine == "csprng" && s.Label != "" && s.ParentID == nil
}

// Draw records one weighted pick made from a stream.
type Draw struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StreamID   uuid.UUID `gorm:"type:uuid;not null;index" json:"stream_id"`
	OperatorID uuid.UUID `gorm:"type:uuid;not null;index" json:"operator_id"`
	PoolSize   int       `gorm:"not null" json:"pool_size"`
	Requested  int       `gorm:"not null" json:"requested"`
	Winners    string    `gorm:"type:text;not null" json:"-"` // JSON array of entry IDs
	Before     string    `gorm:"not null" json:"fingerprint_before"`
	After      string    `gorm:"not null" json:"fingerprint_after"`
	CreatedAt  time.Time `json:"created_at"`
}

// Migrate creates or updates the tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Operator{},
		&Stream{},
		&Draw{},
	)
}
