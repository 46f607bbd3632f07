package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"tulisbareng/internal/document/access"
	"tulisbareng/internal/document/model"
	"tulisbareng/internal/document/repository"
	"tulisbareng/internal/user"
	"tulisbareng/pkg/apperr"
)

// RoomEvictor is the one thing the service needs from the realtime layer:
// tearing down a live room when its document is deleted.
type RoomEvictor interface {
	RemoveDocument(docID string)
}

type DocumentService struct {
	Repo  *repository.DocumentRepository
	Users *user.Repository
	Rooms RoomEvictor
}

func NewDocumentService(repo *repository.DocumentRepository, users *user.Repository, rooms RoomEvictor) *DocumentService {
	return &DocumentService{Repo: repo, Users: users, Rooms: rooms}
}

func (s *DocumentService) Create(userID string, req model.CreateDocRequest) (*model.Document, error) {
	doc := &model.Document{
		ID:            uuid.NewString(),
		Title:         req.Title,
		Content:       req.Content,
		OwnerID:       userID,
		Collaborators: []model.Collaborator{},
	}
	if err := s.Repo.Create(doc); err != nil {
		return nil, err
	}

	owner, err := s.Users.GetByID(userID)
	if err == nil {
		doc.Owner = owner.Public()
	}
	return doc, nil
}

// ListMine returns every document the user owns or is a collaborator on.
func (s *DocumentService) ListMine(userID string) ([]model.DocumentSummary, error) {
	owned, err := s.Repo.ListOwned(userID)
	if err != nil {
		return nil, err
	}
	shared, roles, err := s.Repo.ListShared(userID)
	if err != nil {
		return nil, err
	}

	summaries := lo.Map(owned, func(d model.Document, _ int) model.DocumentSummary {
		return summarize(d, model.RoleOwner)
	})
	summaries = append(summaries, lo.Map(shared, func(d model.Document, _ int) model.DocumentSummary {
		return summarize(d, roles[d.ID])
	})...)
	return summaries, nil
}

// ListShared returns only the documents shared with the user, each with
// the user's resolved collaborator role.
func (s *DocumentService) ListShared(userID string) ([]model.DocumentSummary, error) {
	shared, roles, err := s.Repo.ListShared(userID)
	if err != nil {
		return nil, err
	}
	return lo.Map(shared, func(d model.Document, _ int) model.DocumentSummary {
		return summarize(d, roles[d.ID])
	}), nil
}

func (s *DocumentService) Get(docID, userID string) (*model.DocumentWithRole, error) {
	doc, err := s.Repo.GetByID(docID)
	if err != nil {
		return nil, err
	}
	if !access.CanRead(doc, userID) {
		return nil, apperr.Wrap(apperr.ErrForbidden, "no read access to document %s", docID)
	}
	return &model.DocumentWithRole{Document: *doc, UserRole: access.RoleOf(doc, userID)}, nil
}

// Update applies a partial title/content update and returns the new
// last-modified timestamp.
func (s *DocumentService) Update(docID, userID string, req model.UpdateDocRequest) (time.Time, error) {
	doc, err := s.Repo.GetByID(docID)
	if err != nil {
		return time.Time{}, err
	}
	if !access.CanWrite(doc, userID) {
		return time.Time{}, apperr.Wrap(apperr.ErrForbidden, "no write access to document %s", docID)
	}
	return s.Repo.Update(docID, req.Title, req.Content)
}

func (s *DocumentService) Delete(docID, userID string) error {
	doc, err := s.Repo.GetByID(docID)
	if err != nil {
		return err
	}
	if !access.CanDelete(doc, userID) {
		return apperr.Wrap(apperr.ErrForbidden, "only the owner can delete document %s", docID)
	}

	if err := s.Repo.Delete(docID); err != nil {
		return err
	}
	// Evict the live room so the deleted content is not auto-saved back.
	s.Rooms.RemoveDocument(docID)
	return nil
}

// Share grants a user, resolved by email, a role on the document.
// Re-sharing with an existing collaborator is a Conflict, not an upsert.
func (s *DocumentService) Share(docID, userID string, req model.ShareRequest) (*model.Document, error) {
	doc, err := s.Repo.GetByID(docID)
	if err != nil {
		return nil, err
	}
	if !access.CanManageSharing(doc, userID) {
		return nil, apperr.Wrap(apperr.ErrForbidden, "only the owner can share document %s", docID)
	}

	target, err := s.Users.GetByEmail(req.Email)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrNotFound, "no user with email %s", req.Email)
	}
	if target.ID == doc.OwnerID {
		return nil, apperr.Wrap(apperr.ErrConflict, "owner already has full access")
	}
	if lo.SomeBy(doc.Collaborators, func(c model.Collaborator) bool { return c.UserID == target.ID }) {
		return nil, apperr.Wrap(apperr.ErrConflict, "document already shared with %s", req.Email)
	}

	inserted, err := s.Repo.AddCollaborator(docID, target.ID, req.Role)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Raced with a concurrent share of the same user.
		return nil, apperr.Wrap(apperr.ErrConflict, "document already shared with %s", req.Email)
	}

	return s.Repo.GetByID(docID)
}

func (s *DocumentService) ChangeCollaboratorRole(docID, userID, targetUserID string, role model.Role) error {
	doc, err := s.Repo.GetByID(docID)
	if err != nil {
		return err
	}
	if !access.CanManageSharing(doc, userID) {
		return apperr.Wrap(apperr.ErrForbidden, "only the owner can change roles on document %s", docID)
	}
	return s.Repo.UpdateCollaboratorRole(docID, targetUserID, role)
}

func (s *DocumentService) RemoveCollaborator(docID, userID, targetUserID string) error {
	doc, err := s.Repo.GetByID(docID)
	if err != nil {
		return err
	}
	if !access.CanManageSharing(doc, userID) {
		return apperr.Wrap(apperr.ErrForbidden, "only the owner can remove collaborators on document %s", docID)
	}
	return s.Repo.RemoveCollaborator(docID, targetUserID)
}

func (s *DocumentService) ListCollaborators(docID, userID string) ([]model.Collaborator, error) {
	doc, err := s.Repo.GetByID(docID)
	if err != nil {
		return nil, err
	}
	if !access.CanRead(doc, userID) {
		return nil, apperr.Wrap(apperr.ErrForbidden, "no read access to document %s", docID)
	}
	return doc.Collaborators, nil
}

func summarize(d model.Document, role model.Role) model.DocumentSummary {
	return model.DocumentSummary{
		ID:        d.ID,
		Title:     d.Title,
		Snippet:   snippet(d.Content),
		Owner:     d.Owner,
		UserRole:  role,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func snippet(content string) string {
	res := strings.TrimSpace(strings.ReplaceAll(content, "\n", " "))
	if len(res) > 100 {
		return res[:100] + "..."
	}
	return res
}
