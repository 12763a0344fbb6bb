package feed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tilemark/mapeditor/internal/auth"
	"github.com/tilemark/mapeditor/internal/document"
	"github.com/tilemark/mapeditor/internal/maps"
)

// DocumentSource resolves a map and its buildings for a viewer. An empty
// userID is an anonymous viewer.
type DocumentSource interface {
	Document(ctx context.Context, mapID, userID string) (*document.MapDocument, error)
}

type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

type Handler struct {
	docs           DocumentSource
	tokens         TokenValidator
	batchSize      int
	originPatterns []string
}

// NewHandler builds the websocket endpoint. allowedOrigins are full origins
// such as "http://localhost:5173".
func NewHandler(docs DocumentSource, tokens TokenValidator, batchSize int, allowedOrigins []string) *Handler {
	var patterns []string
	for _, o := range allowedOrigins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return &Handler{
		docs:           docs,
		tokens:         tokens,
		batchSize:      max(batchSize, 1),
		originPatterns: patterns,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mapID := mux.Vars(r)["mapId"]

	var userID string
	token, err := auth.TokenFromRequest(r)
	switch {
	case err == nil:
		userID, err = h.tokens.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	case r.URL.Query().Has("token") || r.Header.Get("Authorization") != "":
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	doc, err := h.docs.Document(r.Context(), mapID, userID)
	if err != nil {
		switch {
		case errors.Is(err, maps.ErrNotFound):
			http.Error(w, "map not found", http.StatusNotFound)
		case errors.Is(err, maps.ErrUnauthorized):
			http.Error(w, "missing token", http.StatusUnauthorized)
		case errors.Is(err, maps.ErrForbidden):
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			slog.Error("load map for feed", "map", mapID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	viewer := userID
	if viewer == "" {
		viewer = "anon-" + uuid.New().String()[:8]
	}
	client := NewClient(conn, doc, h.batchSize, viewer, uuid.New().String())
	slog.Info("feed opened", "map", mapID, "user", viewer, "buildings", len(doc.Buildings))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go client.WritePump(ctx)
	go func() {
		if err := client.Stream(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("feed stream stopped", "map", mapID, "error", err)
		}
	}()
	client.ReadPump(ctx)
}
