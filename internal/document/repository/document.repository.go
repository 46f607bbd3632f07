package repository

import (
	"database/sql"
	"time"

	"tulisbareng/internal/document/model"
	"tulisbareng/pkg/apperr"
	"tulisbareng/pkg/logger"
)

type DocumentRepository struct {
	DB *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	err := r.DB.QueryRow(
		`INSERT INTO documents (id, title, content, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		doc.ID, doc.Title, doc.Content, doc.OwnerID,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to create document: %v", err)
		return apperr.Wrap(apperr.ErrUnavailable, "create document: %v", err)
	}
	return nil
}

// GetByID loads the document together with its owner display fields and
// the full collaborator list, so access decisions can be made in memory.
func (r *DocumentRepository) GetByID(docID string) (*model.Document, error) {
	var doc model.Document
	err := r.DB.QueryRow(
		`SELECT d.id, d.title, d.content, d.owner_id, d.created_at, d.updated_at,
		        u.id, u.name, u.email, u.avatar
		 FROM documents d JOIN users u ON d.owner_id = u.id
		 WHERE d.id = $1`,
		docID,
	).Scan(&doc.ID, &doc.Title, &doc.Content, &doc.OwnerID, &doc.CreatedAt, &doc.UpdatedAt,
		&doc.Owner.ID, &doc.Owner.Name, &doc.Owner.Email, &doc.Owner.Avatar)
	if err == sql.ErrNoRows {
		return nil, apperr.Wrap(apperr.ErrNotFound, "document %s not found", docID)
	} else if err != nil {
		logger.Sugar.Errorf("Failed to fetch document %s: %v", docID, err)
		return nil, apperr.Wrap(apperr.ErrUnavailable, "fetch document: %v", err)
	}

	collabs, err := r.ListCollaborators(docID)
	if err != nil {
		return nil, err
	}
	doc.Collaborators = collabs
	return &doc, nil
}

func (r *DocumentRepository) ListCollaborators(docID string) ([]model.Collaborator, error) {
	rows, err := r.DB.Query(
		`SELECT c.user_id, c.role, u.name, u.email, u.avatar
		 FROM collaborators c JOIN users u ON c.user_id = u.id
		 WHERE c.document_id = $1
		 ORDER BY u.name`,
		docID,
	)
	if err != nil {
		logger.Sugar.Errorf("Failed to list collaborators for doc %s: %v", docID, err)
		return nil, apperr.Wrap(apperr.ErrUnavailable, "list collaborators: %v", err)
	}
	defer rows.Close()

	collabs := []model.Collaborator{}
	for rows.Next() {
		var c model.Collaborator
		if err := rows.Scan(&c.UserID, &c.Role, &c.Name, &c.Email, &c.Avatar); err != nil {
			continue
		}
		collabs = append(collabs, c)
	}
	return collabs, nil
}

func (r *DocumentRepository) ListOwned(userID string) ([]model.Document, error) {
	rows, err := r.DB.Query(
		`SELECT d.id, d.title, d.content, d.owner_id, d.created_at, d.updated_at,
		        u.id, u.name, u.email, u.avatar
		 FROM documents d JOIN users u ON d.owner_id = u.id
		 WHERE d.owner_id = $1
		 ORDER BY d.updated_at DESC`,
		userID,
	)
	if err != nil {
		logger.Sugar.Errorf("Failed to list owned documents for user %s: %v", userID, err)
		return nil, apperr.Wrap(apperr.ErrUnavailable, "list owned documents: %v", err)
	}
	defer rows.Close()
	return scanDocuments(rows, nil)
}

// ListShared returns the documents the user has a collaborator entry on,
// with that entry's role attached per row via the roles map.
func (r *DocumentRepository) ListShared(userID string) ([]model.Document, map[string]model.Role, error) {
	rows, err := r.DB.Query(
		`SELECT d.id, d.title, d.content, d.owner_id, d.created_at, d.updated_at,
		        u.id, u.name, u.email, u.avatar, c.role
		 FROM documents d
		 JOIN collaborators c ON d.id = c.document_id
		 JOIN users u ON d.owner_id = u.id
		 WHERE c.user_id = $1
		 ORDER BY d.updated_at DESC`,
		userID,
	)
	if err != nil {
		logger.Sugar.Errorf("Failed to list shared documents for user %s: %v", userID, err)
		return nil, nil, apperr.Wrap(apperr.ErrUnavailable, "list shared documents: %v", err)
	}
	defer rows.Close()

	roles := make(map[string]model.Role)
	docs, err := scanDocuments(rows, roles)
	return docs, roles, err
}

func scanDocuments(rows *sql.Rows, roles map[string]model.Role) ([]model.Document, error) {
	docs := []model.Document{}
	for rows.Next() {
		var d model.Document
		dest := []any{&d.ID, &d.Title, &d.Content, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt,
			&d.Owner.ID, &d.Owner.Name, &d.Owner.Email, &d.Owner.Avatar}
		var role model.Role
		if roles != nil {
			dest = append(dest, &role)
		}
		if err := rows.Scan(dest...); err != nil {
			continue
		}
		if roles != nil {
			roles[d.ID] = role
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// Update applies a partial update; nil fields are left untouched. Returns
// the new last-modified timestamp so autosaving clients can confirm.
func (r *DocumentRepository) Update(docID string, title, content *string) (updatedAt time.Time, err error) {
	err = r.DB.QueryRow(
		`UPDATE documents
		 SET title = COALESCE($1, title), content = COALESCE($2, content), updated_at = NOW()
		 WHERE id = $3
		 RETURNING updated_at`,
		title, content, docID,
	).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return updatedAt, apperr.Wrap(apperr.ErrNotFound, "document %s not found", docID)
	} else if err != nil {
		logger.Sugar.Errorf("Failed to update doc %s: %v", docID, err)
		return updatedAt, apperr.Wrap(apperr.ErrUnavailable, "update document: %v", err)
	}
	return updatedAt, nil
}

// UpdateContent is the autosave path: overwrite content only.
func (r *DocumentRepository) UpdateContent(docID, content string) error {
	_, err := r.DB.Exec(`UPDATE documents SET content = $1, updated_at = NOW() WHERE id = $2`, content, docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to update content for doc %s: %v", docID, err)
		return apperr.Wrap(apperr.ErrUnavailable, "update content: %v", err)
	}
	return nil
}

func (r *DocumentRepository) Delete(docID string) error {
	_, err := r.DB.Exec("DELETE FROM documents WHERE id = $1", docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete doc %s: %v", docID, err)
		return apperr.Wrap(apperr.ErrUnavailable, "delete document: %v", err)
	}
	return nil
}

// AddCollaborator inserts a share entry. Returns false without error when
// the user is already a collaborator; re-sharing is the caller's Conflict.
func (r *DocumentRepository) AddCollaborator(docID, userID string, role model.Role) (bool, error) {
	res, err := r.DB.Exec(
		`INSERT INTO collaborators (document_id, user_id, role) VALUES ($1, $2, $3)
		 ON CONFLICT (document_id, user_id) DO NOTHING`,
		docID, userID, role,
	)
	if err != nil {
		logger.Sugar.Errorf("Failed to add collaborator %s to doc %s: %v", userID, docID, err)
		return false, apperr.Wrap(apperr.ErrUnavailable, "add collaborator: %v", err)
	}
	inserted, _ := res.RowsAffected()
	return inserted > 0, nil
}

func (r *DocumentRepository) UpdateCollaboratorRole(docID, userID string, role model.Role) error {
	res, err := r.DB.Exec(
		`UPDATE collaborators SET role = $1 WHERE document_id = $2 AND user_id = $3`,
		role, docID, userID,
	)
	if err != nil {
		logger.Sugar.Errorf("Failed to change role of %s on doc %s: %v", userID, docID, err)
		return apperr.Wrap(apperr.ErrUnavailable, "change collaborator role: %v", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.Wrap(apperr.ErrNotFound, "collaborator %s not found on document %s", userID, docID)
	}
	return nil
}

func (r *DocumentRepository) RemoveCollaborator(docID, userID string) error {
	res, err := r.DB.Exec(
		`DELETE FROM collaborators WHERE document_id = $1 AND user_id = $2`,
		docID, userID,
	)
	if err != nil {
		logger.Sugar.Errorf("Failed to remove collaborator %s from doc %s: %v", userID, docID, err)
		return apperr.Wrap(apperr.ErrUnavailable, "remove collaborator: %v", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.Wrap(apperr.ErrNotFound, "collaborator %s not found on document %s", userID, docID)
	}
	return nil
}
