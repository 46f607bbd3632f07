// Package access is the single source of truth for document permissions.
// Both the HTTP service and the realtime hub consult these functions; no
// other code may derive permissions from raw field comparisons.
package access

import "tulisbareng/internal/document/model"

// RoleOf resolves a user's effective role on a document.
func RoleOf(doc *model.Document, userID string) model.Role {
	if doc.OwnerID == userID {
		return model.RoleOwner
	}
	for _, c := range doc.Collaborators {
		if c.UserID == userID {
			return c.Role
		}
	}
	return model.RoleNone
}

func CanRead(doc *model.Document, userID string) bool {
	return RoleOf(doc, userID) != model.RoleNone
}

func CanWrite(doc *model.Document, userID string) bool {
	role := RoleOf(doc, userID)
	return role == model.RoleOwner || role == model.RoleEditor
}

// CanManageSharing reports whether the user may add, remove or re-role
// collaborators. Owner only.
func CanManageSharing(doc *model.Document, userID string) bool {
	return RoleOf(doc, userID) == model.RoleOwner
}

func CanDelete(doc *model.Document, userID string) bool {
	return RoleOf(doc, userID) == model.RoleOwner
}
