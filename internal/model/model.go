package model

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────
// Roles
// ─────────────────────────────────────────────

// Role identifies an image's position in the assembled animation.
type Role string

const (
	RoleStart  Role = "start"
	RoleMiddle Role = "middle"
	RoleEnd    Role = "end"
)

// Roles lists all roles in frame order.
var Roles = [3]Role{RoleStart, RoleMiddle, RoleEnd}

// ParseRole validates a caller-supplied position string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStart, RoleMiddle, RoleEnd:
		return Role(s), nil
	}
	return "", fmt.Errorf("image position unspecified or incorrect: %q", s)
}

func (r Role) String() string { return string(r) }

// ─────────────────────────────────────────────
// Core Domain Models
// ─────────────────────────────────────────────

// Candidate is a raw upload before validation.
type Candidate struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Occupant is a validated, normalized image held under a role,
// awaiting consumption by the assembler.
type Occupant struct {
	Key  string `json:"key"`
	Role Role   `json:"role"`
	URI  string `json:"uri"`
}

// Artifact is a published multi-frame animation.
type Artifact struct {
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	URI         string    `json:"uri"`
	PublishedAt time.Time `json:"published_at"`
}

// PublishedIndexKey is the Redis sorted set holding published artifact
// keys scored by publish time (unix nanos). Bucket listing order is
// meaningless for uuid-prefixed keys, so recency lives here.
const PublishedIndexKey = "published:index"

// ─────────────────────────────────────────────
// WebSocket Protocol Messages
// ─────────────────────────────────────────────

type MsgType string

const (
	// Server → Subscriber
	MsgTypeArtifactPublished MsgType = "ARTIFACT_PUBLISHED"
)

// Envelope is the top-level WebSocket frame.
type Envelope struct {
	Type    MsgType     `json:"type"`
	Payload interface{} `json:"payload"`
}

// ─────────────────────────────────────────────
// SQL Persistence Models (async write)
// ─────────────────────────────────────────────

// UploadLog records every intake attempt, including admission denials.
type UploadLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClientID  string    `gorm:"index" json:"client_id"`
	Role      string    `json:"role"`
	Outcome   string    `json:"outcome"` // accepted | rejected | denied | error
	Reason    string    `json:"reason,omitempty"`
	Key       string    `json:"key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SynthesisLog records each published artifact and its consumed sources.
type SynthesisLog struct {
	ArtifactKey string    `gorm:"primaryKey" json:"artifact_key"`
	Title       string    `json:"title"`
	StartKey    string    `json:"start_key"`
	MiddleKey   string    `json:"middle_key"`
	EndKey      string    `json:"end_key"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// ─────────────────────────────────────────────
// HTTP Request / Response
// ─────────────────────────────────────────────

// UploadResponse is the outbound API response for an accepted upload.
// Artifact is set only when this upload completed a role triple.
type UploadResponse struct {
	ImageURL string    `json:"image_url"`
	Artifact *Artifact `json:"artifact,omitempty"`
}

// GalleryResponse lists the most recently published artifacts, newest first.
type GalleryResponse struct {
	Artifacts []Artifact `json:"artifacts"`
}
