package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"asiste.org/internal/access"
	"asiste.org/internal/identity"
	"asiste.org/internal/obs"
	"asiste.org/internal/stream"
)

type selectRoleRequest struct {
	RoleID         string `json:"roleId"`
	Role           string `json:"role"`
	OrganizationID string `json:"organizationId"`
}

type selectedRoleResponse struct {
	Role *access.RoleOption `json:"role"`
}

type canPerformRequest struct {
	Action         string `json:"action"`
	RecordID       string `json:"recordId"`
	OrganizationID string `json:"organizationId"`
	ClassroomID    string `json:"classroomId"`
}

func (a *API) handleSelectedRole(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.getSelectedRole(w, r)
	case http.MethodPost:
		a.postSelectedRole(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// getSelectedRole returns the active selection, revalidated against the
// current option set. It never errors to the caller: unauthenticated,
// unresolved and degraded states all answer {role:null}.
func (a *API) getSelectedRole(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, selectedRoleResponse{Role: nil})
		return
	}
	rec := newCookieRecord(w, r)
	rr, err := a.selections.Read(r.Context(), user.ID, rec)
	if err != nil {
		obs.ObserveRoleResolution("degraded")
		obs.LogError("role resolution degraded", err, map[string]any{"user_id": user.ID})
	} else {
		obs.ObserveRoleResolution("ok")
	}
	writeJSON(w, http.StatusOK, selectedRoleResponse{Role: rr.Option})
}

// postSelectedRole writes a new selection after validating the submitted
// triple against the resolvable options. Any validation failure, including a
// collaborator outage, answers the single "Invalid role" message.
func (a *API) postSelectedRole(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req selectRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sel := access.RoleSelection{
		RoleID:         strings.TrimSpace(req.RoleID),
		Role:           access.Role(strings.TrimSpace(req.Role)),
		OrganizationID: strings.TrimSpace(req.OrganizationID),
	}
	rec := newCookieRecord(w, r)
	if err := a.selections.Write(r.Context(), user.ID, sel, rec); err != nil {
		obs.ObserveSelectionWrite("rejected")
		a.audit(r.Context(), "access.role.rejected", map[string]any{
			"roleId": sel.RoleID,
			"role":   string(sel.Role),
		})
		switch {
		case errors.Is(err, access.ErrInvalidSelection), errors.Is(err, access.ErrCollaborator):
			writeError(w, r, http.StatusBadRequest, "Invalid role")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	obs.ObserveSelectionWrite("accepted")
	a.audit(r.Context(), "access.role.selected", map[string]any{
		"roleId":         sel.RoleID,
		"role":           string(sel.Role),
		"organizationId": sel.OrganizationID,
	})
	if a.events != nil {
		a.events.Publish(stream.SelectionEvent{
			UserID:         user.ID,
			RoleID:         sel.RoleID,
			Role:           sel.Role,
			OrganizationID: sel.OrganizationID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleSignOut invalidates the session and expires the selection cookies.
// Idempotent: signing out without a session still answers success.
func (a *API) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	rec := newCookieRecord(w, r)
	rec.clearAll()
	setSessionCookie(w, "", -1)
	a.audit(r.Context(), "access.signout", nil)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleRoleOptions lists every role the user can currently act under.
func (a *API) handleRoleOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	res, err := a.resolver.Resolve(r.Context(), user.ID)
	if err != nil {
		obs.ObserveRoleResolution("degraded")
		obs.LogError("role resolution degraded", err, map[string]any{"user_id": user.ID})
	} else {
		obs.ObserveRoleResolution("ok")
	}
	options := res.Options
	if options == nil {
		options = []access.RoleOption{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"options": options,
		"highest": res.Highest,
	})
}

// handleCanPerform answers a single capability question for the active role.
// Every unknown state resolves to deny.
func (a *API) handleCanPerform(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req canPerformRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rec := newCookieRecord(w, r)
	gr, err := a.gate.Guard(r.Context(), user.ID, rec)
	if err != nil {
		obs.LogError("capability guard degraded", err, map[string]any{"user_id": user.ID})
	}
	if gr.ActiveSelection == nil {
		writeJSON(w, http.StatusOK, map[string]any{"allowed": false})
		return
	}

	subject := access.Subject{
		OrganizationID: strings.TrimSpace(req.OrganizationID),
		ClassroomID:    strings.TrimSpace(req.ClassroomID),
	}
	if recordID := strings.TrimSpace(req.RecordID); recordID != "" {
		if a.subjects == nil {
			writeJSON(w, http.StatusOK, map[string]any{"allowed": false})
			return
		}
		resolved, err := a.subjects.AttendanceSubject(r.Context(), recordID)
		if err != nil {
			if !errors.Is(err, access.ErrNotFound) {
				obs.LogError("attendance subject lookup failed", err, map[string]any{"record_id": recordID})
			}
			writeJSON(w, http.StatusOK, map[string]any{"allowed": false})
			return
		}
		subject = resolved
	}

	allowed := a.evaluator.CanPerform(r.Context(), access.Action(req.Action), subject, user.ID, gr.ActiveSelection.Role)
	writeJSON(w, http.StatusOK, map[string]any{"allowed": allowed})
}
