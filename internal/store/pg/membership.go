package pg

import (
	"context"
	"fmt"
	"strings"

	"asiste.org/internal/access"
)

var _ access.MembershipProvider = (*Store)(nil)

// ListActiveMemberships returns the user's active memberships in active
// organizations. Memberships in deactivated organizations are excluded so a
// stale selection pointing at one fails revalidation.
func (s *Store) ListActiveMemberships(ctx context.Context, userID string) ([]access.Membership, error) {
	if s.db == nil {
		return nil, errNoDatabase
	}
	rows, err := s.db.QueryContext(ctx, `
		select m.id, m.user_id, m.organization_id, m.role, m.active
		from memberships m
		join organizations o on o.id = m.organization_id
		where m.user_id = $1 and m.active and o.active
		order by m.organization_id, m.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []access.Membership
	for rows.Next() {
		var m access.Membership
		if err := rows.Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.Role, &m.Active); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// IsFacilitator reports whether the user holds an active facilitator grant.
func (s *Store) IsFacilitator(ctx context.Context, userID string) (bool, error) {
	if s.db == nil {
		return false, errNoDatabase
	}
	var granted bool
	err := s.db.QueryRowContext(ctx, `
		select exists(
			select 1 from facilitator_grants
			where user_id = $1 and active
		)
	`, userID).Scan(&granted)
	if err != nil {
		return false, err
	}
	return granted, nil
}

// OwnedActiveOrganizations returns the active organizations owned by the
// user, in creation order (ids are ULIDs).
func (s *Store) OwnedActiveOrganizations(ctx context.Context, userID string) ([]access.Organization, error) {
	if s.db == nil {
		return nil, errNoDatabase
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, name, active, owner_facilitator_id
		from organizations
		where owner_facilitator_id = $1 and active
		order by id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []access.Organization
	for rows.Next() {
		var org access.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Active, &org.OwnerID); err != nil {
			return nil, err
		}
		result = append(result, org)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// OrganizationRefs maps organization ids to display names.
func (s *Store) OrganizationRefs(ctx context.Context, orgIDs []string) (map[string]string, error) {
	if s.db == nil {
		return nil, errNoDatabase
	}
	refs := make(map[string]string, len(orgIDs))
	if len(orgIDs) == 0 {
		return refs, nil
	}

	placeholders := make([]string, len(orgIDs))
	args := make([]any, len(orgIDs))
	for i, id := range orgIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, name from organizations
		where id in (`+strings.Join(placeholders, ", ")+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		refs[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}
