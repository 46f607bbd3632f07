package router

import (
	"database/sql"
	"net/http"

	"tulisbareng/internal/auth"
	docHandler "tulisbareng/internal/document"
	"tulisbareng/internal/document/repository"
	"tulisbareng/internal/document/service"
	"tulisbareng/internal/user"
	"tulisbareng/middleware"
	"tulisbareng/socket"
)

func Setup(db *sql.DB, hub *socket.Hub, tokens *auth.TokenManager, allowedOrigin string) http.Handler {
	mux := http.NewServeMux()
	requireAuth := middleware.Auth(tokens)

	// WebSocket: the handshake reuses the exact same token verification as
	// the REST middleware.
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(middleware.UserIDKey).(string)
		socket.ServeWs(hub, w, r, userID)
	})
	mux.Handle("GET /ws", requireAuth(wsHandler))

	// Auth & profile
	userRepo := user.NewRepository(db)
	userHandler := user.NewHandler(userRepo, tokens)
	mux.HandleFunc("POST /api/auth/register", userHandler.Register)
	mux.HandleFunc("POST /api/auth/login", userHandler.Login)
	mux.Handle("GET /api/auth/me", requireAuth(http.HandlerFunc(userHandler.Me)))
	mux.Handle("PUT /api/auth/profile", requireAuth(http.HandlerFunc(userHandler.UpdateProfile)))

	// Documents
	docRepo := repository.NewDocumentRepository(db)
	docService := service.NewDocumentService(docRepo, userRepo, hub)
	docs := docHandler.NewDocumentHandler(docService)

	mux.Handle("POST /api/documents", requireAuth(http.HandlerFunc(docs.CreateDocument)))
	mux.Handle("GET /api/documents/mine", requireAuth(http.HandlerFunc(docs.GetMyDocuments)))
	mux.Handle("GET /api/documents/shared", requireAuth(http.HandlerFunc(docs.GetSharedDocuments)))
	mux.Handle("GET /api/documents/{id}", requireAuth(http.HandlerFunc(docs.GetDocument)))
	mux.Handle("PUT /api/documents/{id}", requireAuth(http.HandlerFunc(docs.UpdateDocument)))
	mux.Handle("DELETE /api/documents/{id}", requireAuth(http.HandlerFunc(docs.DeleteDocument)))
	mux.Handle("POST /api/documents/{id}/share", requireAuth(http.HandlerFunc(docs.ShareDocument)))
	mux.Handle("PUT /api/documents/{id}/collaborators/{userId}", requireAuth(http.HandlerFunc(docs.ChangeCollaboratorRole)))
	mux.Handle("DELETE /api/documents/{id}/collaborators/{userId}", requireAuth(http.HandlerFunc(docs.RemoveCollaborator)))
	mux.Handle("GET /api/documents/{id}/collaborators", requireAuth(http.HandlerFunc(docs.GetCollaborators)))

	return middleware.CORS(allowedOrigin)(mux)
}
