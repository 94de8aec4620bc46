package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	app "github.com/taskhub-io/taskhub/internal/app"
	"github.com/taskhub-io/taskhub/internal/app/domain/message"
	"github.com/taskhub-io/taskhub/internal/app/domain/post"
	"github.com/taskhub-io/taskhub/internal/app/domain/user"
	"github.com/taskhub-io/taskhub/internal/app/metrics"
	"github.com/taskhub-io/taskhub/internal/app/services/notify"
	postssvc "github.com/taskhub-io/taskhub/internal/app/services/posts"
	"github.com/taskhub-io/taskhub/internal/app/services/workflow"
	"github.com/taskhub-io/taskhub/internal/app/storage"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit *AuditLog
}

// NewHandler returns a mux exposing the core REST API.
func NewHandler(application *app.Application, audit *AuditLog) http.Handler {
	h := &handler{app: application, audit: audit}
	mux := http.NewServeMux()
	mux.HandleFunc("/users", h.users)
	mux.HandleFunc("/users/", h.userResources)
	mux.HandleFunc("/posts", h.posts)
	mux.HandleFunc("/posts/", h.postResources)
	mux.HandleFunc("/rooms/", h.roomResources)
	mux.HandleFunc("/audit", h.auditEntries)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// userRef is the wire shape for a user reference embedded in a post.
type userRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// userView is the wire shape for a full user record. The skills list is
// always present so clients never see a null there.
type userView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email"`
	Skills    []string  `json:"skills"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// messageView is the wire shape for a room message.
type messageView struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"roomId"`
	SenderID string    `json:"senderId"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sentAt"`
}

// postView is the wire shape for a post. The applicant list is always present
// and the assignee is null until someone is assigned.
type postView struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Owner        userRef           `json:"owner"`
	Tags         []string          `json:"tags,omitempty"`
	DueDate      string            `json:"dueDate,omitempty"`
	Status       string            `json:"post_status"`
	AppliedUsers []userRef         `json:"appliedUsers"`
	AssignedUser *userRef          `json:"assignedUser"`
	Actions      []workflow.Action `json:"actions,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

func (h *handler) users(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := h.app.Directory.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		views := make([]userView, 0, len(users))
		for _, u := range users {
			views = append(views, toUserView(u))
		}
		writeJSON(w, http.StatusOK, views)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) userResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if parts[0] == "resolve" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resolved, err := h.app.Directory.ResolveByEmail(r.Context(), payload.Email, payload.Name)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserView(resolved))
		return
	}

	userID := parts[0]
	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		u, err := h.app.Directory.GetByID(r.Context(), userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserView(u))
		return
	}

	if len(parts) == 2 && parts[1] == "skills" {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Skills []string `json:"skills"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.app.Directory.UpdateSkills(r.Context(), userID, payload.Skills)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserView(updated))
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

func (h *handler) posts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			OwnerID     string   `json:"ownerId"`
			Title       string   `json:"title"`
			Description string   `json:"description"`
			Tags        []string `json:"tags"`
			DueDate     string   `json:"dueDate"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		due, err := parseDueDate(payload.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		created, err := h.app.Posts.Create(r.Context(), payload.OwnerID, payload.Title, payload.Description, payload.Tags, due)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, h.postView(r.Context(), created, payload.OwnerID))

	case http.MethodGet:
		status := post.Status(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
		listed, err := h.app.Posts.List(r.Context(), r.URL.Query().Get("owner"), status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		viewerID := r.URL.Query().Get("viewer")
		views := make([]postView, 0, len(listed))
		for _, p := range listed {
			views = append(views, h.postView(r.Context(), p, viewerID))
		}
		writeJSON(w, http.StatusOK, views)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) postResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/posts"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	postID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			p, err := h.app.Posts.Get(r.Context(), postID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, h.postView(r.Context(), p, r.URL.Query().Get("viewer")))
		case http.MethodPatch:
			h.updatePost(w, r, postID)
		case http.MethodDelete:
			callerID := r.URL.Query().Get("userId")
			if err := h.app.Posts.Delete(r.Context(), postID, callerID); err != nil {
				writeDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if parts[1] == "actions" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p, err := h.app.Posts.Get(r.Context(), postID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		actions := workflow.Actions(r.URL.Query().Get("viewer"), p)
		if actions == nil {
			actions = []workflow.Action{}
		}
		writeJSON(w, http.StatusOK, map[string][]workflow.Action{"actions": actions})
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.postAction(w, r, postID, parts[1])
}

func (h *handler) updatePost(w http.ResponseWriter, r *http.Request, postID string) {
	var payload struct {
		CallerID    string   `json:"callerId"`
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Tags        []string `json:"tags"`
		DueDate     *string  `json:"dueDate"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var due *time.Time
	if payload.DueDate != nil {
		parsed, err := parseDueDate(*payload.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		due = &parsed
	}

	updated, err := h.app.Posts.Update(r.Context(), postID, payload.CallerID, payload.Title, payload.Description, payload.Tags, due)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.postView(r.Context(), updated, payload.CallerID))
}

func (h *handler) postAction(w http.ResponseWriter, r *http.Request, postID, action string) {
	var payload struct {
		UserID         string `json:"userId"`
		ApplicantID    string `json:"applicantId"`
		AssignedUserID string `json:"assignedUserId"`
		CallerID       string `json:"callerId"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var (
		updated post.Post
		viewer  string
		err     error
	)
	switch action {
	case "apply":
		updated, err = h.app.Workflow.Apply(r.Context(), postID, payload.UserID)
		viewer = payload.UserID
	case "cancel-application":
		updated, err = h.app.Workflow.CancelApplication(r.Context(), postID, payload.UserID)
		viewer = payload.UserID
	case "assign":
		updated, err = h.app.Workflow.AssignApplicant(r.Context(), postID, payload.ApplicantID, payload.CallerID)
		viewer = payload.CallerID
	case "cancel-assignment":
		updated, err = h.app.Workflow.CancelAssignment(r.Context(), postID, payload.AssignedUserID, payload.CallerID)
		viewer = payload.CallerID
	case "finish":
		updated, err = h.app.Workflow.Finish(r.Context(), postID, payload.CallerID)
		viewer = payload.CallerID
	case "announce":
		h.announcePost(w, r, postID, payload.CallerID)
		return
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.postView(r.Context(), updated, viewer))
}

func (h *handler) announcePost(w http.ResponseWriter, r *http.Request, postID, callerID string) {
	p, err := h.app.Posts.Get(r.Context(), postID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if p.OwnerID != callerID {
		writeError(w, http.StatusForbidden, fmt.Errorf("only the owner may announce post %s", postID))
		return
	}
	// The derived action set is the single authority on what a caller may do,
	// so a finished post cannot be announced.
	if !actionPermitted(workflow.Actions(callerID, p), workflow.ActionAnnounce) {
		writeDomainError(w, fmt.Errorf("post %s is %s: %w", postID, p.Status, workflow.ErrInvalidTransition))
		return
	}
	if h.app.Announcer == nil {
		// Disabled gateway behaves like an unreachable one: transient flag,
		// post state untouched.
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"announced": false,
			"error":     "announcement gateway not configured",
		})
		return
	}

	if err := h.app.Announcer.Announce(r.Context(), p); err != nil {
		// The post itself is untouched; report the delivery failure.
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"announced": false,
			"error":     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"announced": true})
}

func (h *handler) roomResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/rooms"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "messages" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	roomID := parts[0]

	switch r.Method {
	case http.MethodPost:
		var payload struct {
			SenderID string `json:"senderId"`
			Text     string `json:"text"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sent, err := h.app.Messages.Send(r.Context(), roomID, payload.SenderID, payload.Text)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toMessageView(sent))

	case http.MethodGet:
		limit := 0
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be an integer"))
				return
			}
		}
		msgs, err := h.app.Messages.List(r.Context(), roomID, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		views := make([]messageView, 0, len(msgs))
		for _, m := range msgs {
			views = append(views, toMessageView(m))
		}
		writeJSON(w, http.StatusOK, views)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.audit == nil {
		writeJSON(w, http.StatusOK, []Entry{})
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be an integer"))
			return
		}
	}
	writeJSON(w, http.StatusOK, h.audit.ListLimit(limit))
}

// postView expands user ids into references. A directory miss falls back to an
// id-only reference so stale posts still render.
func (h *handler) postView(ctx context.Context, p post.Post, viewerID string) postView {
	view := postView{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Owner:        h.userRef(ctx, p.OwnerID),
		Tags:         p.Tags,
		Status:       string(p.Status),
		AppliedUsers: make([]userRef, 0, len(p.AppliedUserIDs)),
		Actions:      workflow.Actions(viewerID, p),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if !p.DueDate.IsZero() {
		view.DueDate = p.DueDate.UTC().Format(time.RFC3339)
	}
	for _, id := range p.AppliedUserIDs {
		view.AppliedUsers = append(view.AppliedUsers, h.userRef(ctx, id))
	}
	if p.AssignedUserID != "" {
		assigned := h.userRef(ctx, p.AssignedUserID)
		view.AssignedUser = &assigned
	}
	return view
}

func (h *handler) userRef(ctx context.Context, id string) userRef {
	if id == "" {
		return userRef{}
	}
	u, err := h.app.Directory.GetByID(ctx, id)
	if err != nil {
		return userRef{ID: id}
	}
	return toUserRef(u)
}

func toUserRef(u user.User) userRef {
	return userRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

func toMessageView(m message.Message) messageView {
	return messageView{
		ID:       m.ID,
		RoomID:   m.RoomID,
		SenderID: m.SenderID,
		Text:     m.Text,
		SentAt:   m.SentAt,
	}
}

func toUserView(u user.User) userView {
	skills := u.Skills
	if skills == nil {
		skills = []string{}
	}
	return userView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Skills:    skills,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func actionPermitted(actions []workflow.Action, want workflow.Action) bool {
	for _, a := range actions {
		if a == want {
			return true
		}
	}
	return false
}

func parseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("dueDate must be RFC3339 timestamp")
	}
	return parsed, nil
}

// writeDomainError maps service errors onto HTTP statuses. A lost optimistic
// write and a state-machine violation both come back 409, distinguished by
// the code field.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	code := "bad_request"
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, workflow.ErrForbidden), errors.Is(err, postssvc.ErrNotOwner):
		status = http.StatusForbidden
		code = "forbidden"
	case errors.Is(err, storage.ErrConflict):
		status = http.StatusConflict
		code = "conflict"
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, postssvc.ErrNotEditable):
		status = http.StatusConflict
		code = "invalid_transition"
	case errors.Is(err, notify.ErrUpstreamUnavailable):
		status = http.StatusBadGateway
		code = "upstream_unavailable"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error(), "code": code})
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
