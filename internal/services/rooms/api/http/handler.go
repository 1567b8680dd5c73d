// Package httpapi exposes the rooms service as a JSON API.
//
// Reads are GET routes under /api/rooms. Every mutation is a POST to
// /api/rooms whose body names an action. The caller identity is resolved
// once per request from the bearer token and carried in the request context.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/classroom.space/internal/platform/errors"
	"github.com/louisbranch/classroom.space/internal/platform/requestctx"
	"github.com/louisbranch/classroom.space/internal/services/rooms/api/views"
	"github.com/louisbranch/classroom.space/internal/services/rooms/authz"
	"github.com/louisbranch/classroom.space/internal/services/rooms/service"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 1 << 20

// TokenVerifier resolves a bearer token into a caller identity.
type TokenVerifier interface {
	Verify(token string) (requestctx.Identity, error)
}

type handler struct {
	svc      *service.Service
	verifier TokenVerifier
}

// NewHandler builds the rooms API routes.
func NewHandler(svc *service.Service, verifier TokenVerifier) (http.Handler, error) {
	if svc == nil {
		return nil, errors.New("rooms service is required")
	}
	if verifier == nil {
		return nil, errors.New("token verifier is required")
	}
	h := &handler{svc: svc, verifier: verifier}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("GET /api/rooms", h.authenticate(h.listRooms))
	mux.Handle("POST /api/rooms", h.authenticate(h.postAction))
	mux.Handle("GET /api/rooms/{roomID}/messages", h.authenticate(h.listMessages))
	mux.Handle("GET /api/rooms/{roomID}/groups", h.authenticate(h.listGroups))
	return mux, nil
}

// authenticate resolves the bearer token and stores the identity in the
// request context before calling next.
func (h *handler) authenticate(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, apperrors.WithMetadata(apperrors.CodeUnauthenticated,
				"bearer token is required", map[string]string{"Field": "authorization"}))
			return
		}
		identity, err := h.verifier.Verify(token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r.WithContext(requestctx.WithIdentity(r.Context(), identity)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func callerFrom(r *http.Request) authz.CallerIdentity {
	identity, _ := requestctx.IdentityFromContext(r.Context())
	return authz.FromContext(identity)
}

func (h *handler) listRooms(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.svc.Rooms.ListRooms(r.Context(), callerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roomsResponse{Rooms: views.FromRoomViews(snapshots)})
}

func (h *handler) listMessages(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, r, apperrors.WithMetadata(apperrors.CodeValidationOutOfRange,
				"limit must be a positive number", map[string]string{"Field": "limit"}))
			return
		}
		limit = parsed
	}
	messages, err := h.svc.Messages.ListMessages(r.Context(), callerFrom(r), r.PathValue("roomID"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse{Messages: views.FromMessages(messages)})
}

func (h *handler) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.Breakouts.ListGroups(r.Context(), callerFrom(r), r.PathValue("roomID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groupsResponse{Groups: views.FromGroups(groups)})
}

func (h *handler) postAction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req actionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, r, apperrors.WithMetadata(apperrors.CodeValidationRequired,
			"invalid request body: "+err.Error(), map[string]string{"Field": "body"}))
		return
	}
	action, ok := actions[strings.ToLower(strings.TrimSpace(req.Action))]
	if !ok {
		writeError(w, r, apperrors.WithMetadata(apperrors.CodeValidationInvalidEnum,
			"unknown action", map[string]string{"Field": "action", "Allowed": actionNames()}))
		return
	}
	status, payload, err := action(h, r, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
