package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"tulisbareng/internal/document/model"
	"tulisbareng/internal/document/service"
	"tulisbareng/middleware"
	"tulisbareng/pkg/apperr"
	"tulisbareng/pkg/logger"
)

type DocumentHandler struct {
	Service  *service.DocumentService
	validate *validator.Validate
}

func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{Service: svc, validate: validator.New()}
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)

	var req model.CreateDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}

	doc, err := h.Service.Create(userID, req)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to create document: %v", err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) GetMyDocuments(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)

	docs, err := h.Service.ListMine(userID)
	if err != nil {
		logger.Sugar.Errorf("Error fetching documents: %v", err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) GetSharedDocuments(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)

	docs, err := h.Service.ListShared(userID)
	if err != nil {
		logger.Sugar.Errorf("Error fetching shared documents: %v", err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)
	docID := r.PathValue("id")

	doc, err := h.Service.Get(docID, userID)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)
	docID := r.PathValue("id")

	var req model.UpdateDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	savedAt, err := h.Service.Update(docID, userID, req)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to update doc %s: %v", docID, err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	writeJSON(w, http.StatusOK, model.SaveResponse{SavedAt: savedAt})
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)
	docID := r.PathValue("id")

	if err := h.Service.Delete(docID, userID); err != nil {
		logger.Sugar.Errorf("Handler: Failed to delete document %s: %v", docID, err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Document deleted"})
}

func (h *DocumentHandler) ShareDocument(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)
	docID := r.PathValue("id")

	var req model.ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "Email and a role of editor or viewer are required", http.StatusBadRequest)
		return
	}

	doc, err := h.Service.Share(docID, userID, req)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to share document %s: %v", docID, err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) ChangeCollaboratorRole(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)
	docID := r.PathValue("id")
	targetUserID := r.PathValue("userId")

	var req model.ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "Role must be editor or viewer", http.StatusBadRequest)
		return
	}

	if err := h.Service.ChangeCollaboratorRole(docID, userID, targetUserID, req.Role); err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Collaborator role updated"})
}

func (h *DocumentHandler) RemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)
	docID := r.PathValue("id")
	targetUserID := r.PathValue("userId")

	if err := h.Service.RemoveCollaborator(docID, userID, targetUserID); err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Collaborator removed"})
}

func (h *DocumentHandler) GetCollaborators(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)
	docID := r.PathValue("id")

	collabs, err := h.Service.ListCollaborators(docID, userID)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	writeJSON(w, http.StatusOK, collabs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
