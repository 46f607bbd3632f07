package model

import (
	"time"

	"tulisbareng/internal/user"
)

// Role is a user's capability on a document. Ownership is implicit: the
// owner never appears in the collaborator list.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
	RoleNone   Role = "none"
)

// Collaborator is a (user, role) pair attached to a document, with the
// user's display fields resolved for client rendering.
type Collaborator struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

type Document struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	OwnerID       string         `json:"owner_id"`
	Owner         user.Public    `json:"owner"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Collaborators []Collaborator `json:"collaborators"`
}

// DocumentWithRole is a fetched document plus the caller's resolved role,
// so clients never re-derive permissions from raw fields.
type DocumentWithRole struct {
	Document
	UserRole Role `json:"userRole"`
}

// DocumentSummary is the listing shape for dashboards.
type DocumentSummary struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Snippet   string      `json:"snippet"`
	Owner     user.Public `json:"owner"`
	UserRole  Role        `json:"userRole"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type CreateDocRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
}

// UpdateDocRequest carries a partial update; nil means leave unchanged.
type UpdateDocRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type SaveResponse struct {
	SavedAt time.Time `json:"savedAt"`
}

type ShareRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  Role   `json:"role" validate:"required,oneof=editor viewer"`
}

type ChangeRoleRequest struct {
	Role Role `json:"role" validate:"required,oneof=editor viewer"`
}
