package httpapi

import (
	"context"
	"net/http"

	"asiste.org/internal/access"
)

const (
	cookieRoleID  = "selected_role_id"
	cookieRole    = "selected_role"
	cookieRoleOrg = "selected_role_org"

	sessionCookie = "asiste_session"

	// 30 days, matching the selection lifetime.
	selectionMaxAge = 30 * 24 * 60 * 60
)

// cookieRecord stores the role selection as three independent cookies. They
// are deliberately readable by the client as a UI hint; every privileged
// decision revalidates server-side, so the cookies carry no authority.
type cookieRecord struct {
	r *http.Request
	w http.ResponseWriter
}

var _ access.SelectionRecord = cookieRecord{}

func newCookieRecord(w http.ResponseWriter, r *http.Request) cookieRecord {
	return cookieRecord{r: r, w: w}
}

func (c cookieRecord) Load(_ context.Context) (*access.RoleSelection, error) {
	roleID := cookieValue(c.r, cookieRoleID)
	role := cookieValue(c.r, cookieRole)
	if roleID == "" || role == "" {
		return nil, nil
	}
	return &access.RoleSelection{
		RoleID:         roleID,
		Role:           access.Role(role),
		OrganizationID: cookieValue(c.r, cookieRoleOrg),
	}, nil
}

func (c cookieRecord) Save(_ context.Context, sel access.RoleSelection) error {
	setSelectionCookie(c.w, cookieRoleID, sel.RoleID)
	setSelectionCookie(c.w, cookieRole, string(sel.Role))
	if sel.OrganizationID != "" {
		setSelectionCookie(c.w, cookieRoleOrg, sel.OrganizationID)
	}
	return nil
}

func (c cookieRecord) ClearOrganization(_ context.Context) error {
	expireCookie(c.w, cookieRoleOrg)
	return nil
}

// clearAll expires every selection cookie. Used on sign-out.
func (c cookieRecord) clearAll() {
	expireCookie(c.w, cookieRoleID)
	expireCookie(c.w, cookieRole)
	expireCookie(c.w, cookieRoleOrg)
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func setSelectionCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   selectionMaxAge,
		SameSite: http.SameSiteLaxMode,
	})
}

func expireCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
	})
}

func setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
