package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tulisbareng/internal/document/model"
)

func sampleDoc() *model.Document {
	return &model.Document{
		ID:      "doc-1",
		OwnerID: "alice",
		Collaborators: []model.Collaborator{
			{UserID: "bob", Role: model.RoleEditor},
			{UserID: "carol", Role: model.RoleViewer},
		},
	}
}

func TestRoleOf(t *testing.T) {
	doc := sampleDoc()

	assert.Equal(t, model.RoleOwner, RoleOf(doc, "alice"))
	assert.Equal(t, model.RoleEditor, RoleOf(doc, "bob"))
	assert.Equal(t, model.RoleViewer, RoleOf(doc, "carol"))
	assert.Equal(t, model.RoleNone, RoleOf(doc, "mallory"))
}

func TestPermissionMatrix(t *testing.T) {
	doc := sampleDoc()

	tests := []struct {
		userID    string
		canRead   bool
		canWrite  bool
		canShare  bool
		canDelete bool
	}{
		{"alice", true, true, true, true},
		{"bob", true, true, false, false},
		{"carol", true, false, false, false},
		{"mallory", false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.userID, func(t *testing.T) {
			assert.Equal(t, tt.canRead, CanRead(doc, tt.userID))
			assert.Equal(t, tt.canWrite, CanWrite(doc, tt.userID))
			assert.Equal(t, tt.canShare, CanManageSharing(doc, tt.userID))
			assert.Equal(t, tt.canDelete, CanDelete(doc, tt.userID))
		})
	}
}

// Write access must imply read access, and the owner-only operations must
// imply an owner role, for every user on the document.
func TestPermissionImplications(t *testing.T) {
	doc := sampleDoc()

	for _, userID := range []string{"alice", "bob", "carol", "mallory"} {
		if CanWrite(doc, userID) {
			assert.True(t, CanRead(doc, userID), "canWrite must imply canRead for %s", userID)
		}
		if CanManageSharing(doc, userID) {
			assert.Equal(t, model.RoleOwner, RoleOf(doc, userID))
		}
		if CanDelete(doc, userID) {
			assert.Equal(t, model.RoleOwner, RoleOf(doc, userID))
		}
	}
}

// The owner's role wins even if a stray collaborator row exists for them;
// ownership is implicit and never read from the collaborator list.
func TestOwnerRolePrecedence(t *testing.T) {
	doc := &model.Document{
		ID:      "doc-2",
		OwnerID: "alice",
		Collaborators: []model.Collaborator{
			{UserID: "alice", Role: model.RoleViewer},
		},
	}

	assert.Equal(t, model.RoleOwner, RoleOf(doc, "alice"))
	assert.True(t, CanWrite(doc, "alice"))
	assert.True(t, CanManageSharing(doc, "alice"))
}
