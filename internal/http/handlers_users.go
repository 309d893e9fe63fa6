package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
	apperrors "github.com/target/taskdesk/internal/errors"
	"github.com/target/taskdesk/internal/service"
)

// UserHandlers serves the users API backing profile sync.
type UserHandlers struct {
	Svc    *service.UserService
	Logger *slog.Logger
}

// userRequest accepts both field spellings sent by existing clients: id|uid and image|photo.
type userRequest struct {
	ID         string `json:"id"`
	UID        string `json:"uid"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Image      string `json:"image"`
	Photo      string `json:"photo"`
	JoinedDate string `json:"joinedDate"`
}

func (req userRequest) toInput() (domainauth.UserProfileInput, error) {
	in := domainauth.UserProfileInput{
		ID:       firstNonEmpty(req.ID, req.UID),
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		PhotoURL: firstNonEmpty(req.Image, req.Photo),
	}
	if s := strings.TrimSpace(req.JoinedDate); s != "" {
		joined, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return in, apperrors.ValidationField("joinedDate", "joinedDate must be an RFC 3339 timestamp")
		}
		in.JoinedAt = joined
	}
	return in, nil
}

type upsertResponse struct {
	Created    bool                   `json:"created"`
	InsertedID string                 `json:"insertedId,omitempty"`
	User       domainauth.UserProfile `json:"user"`
}

// Upsert handles POST /users.
func (h *UserHandlers) Upsert(w http.ResponseWriter, r *http.Request) {
	caller, ok := PrincipalFromContext(r.Context())
	if !ok {
		unauthorized(w, "authentication required")
		return
	}

	var req userRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		WriteAppError(w, r, h.Logger, err)
		return
	}

	res, err := h.Svc.Upsert(r.Context(), caller, in)
	if err != nil {
		WriteAppError(w, r, h.Logger, err)
		return
	}

	resp := upsertResponse{Created: res.Created, User: res.Profile}
	status := http.StatusOK
	if res.Created {
		resp.InsertedID = res.Profile.ID
		status = http.StatusCreated
	}
	WriteJSON(w, status, resp)
}

// Me handles GET /users/me.
func (h *UserHandlers) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := PrincipalFromContext(r.Context())
	if !ok {
		unauthorized(w, "authentication required")
		return
	}
	profile, err := h.Svc.Me(r.Context(), caller)
	if err != nil {
		WriteAppError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

var (
	errMethodNotAllowed = errors.New("method not allowed")
	errNotFound         = errors.New("not found")
)
