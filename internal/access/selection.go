package access

import (
	"context"
	"fmt"
)

// SelectionRecord is the persisted selection for one user session, typically
// a small set of cookies. The payload is not secret: it denotes which role is
// foregrounded and is re-validated server-side before any privileged
// decision.
type SelectionRecord interface {
	// Load returns the stored selection, or nil when none is stored. A load
	// failure is indistinguishable from an absent record.
	Load(ctx context.Context) (*RoleSelection, error)
	// Save persists the selection fields. ClearOrganization is the only
	// path that removes the organization component; Save never does.
	Save(ctx context.Context, sel RoleSelection) error
	// ClearOrganization removes the organization component without
	// disturbing role and roleId.
	ClearOrganization(ctx context.Context) error
}

// ReadResult is the outcome of reading the active selection.
type ReadResult struct {
	// Selection is the active selection, or nil when the user has no
	// resolvable role.
	Selection *RoleSelection
	// Option is the resolvable option backing Selection.
	Option *RoleOption
	// PersistPending is true when the returned selection is the resolver's
	// default and has not been written to the record. Reads never write.
	PersistPending bool
}

// SelectionStore reconciles the persisted role choice against the set of
// roles currently resolvable for the user. It owns the only cross-request
// mutable state of the core; writes are last-write-wins and idempotent per
// user, so no locking is needed.
type SelectionStore struct {
	resolver *Resolver
}

// NewSelectionStore constructs a SelectionStore over the resolver.
func NewSelectionStore(resolver *Resolver) *SelectionStore {
	return &SelectionStore{resolver: resolver}
}

// Read loads the persisted selection and revalidates it against the current
// option set. An absent or invalid selection falls back to the resolver's
// default without persisting; PersistPending tells the caller a write is
// still due.
func (s *SelectionStore) Read(ctx context.Context, userID string, rec SelectionRecord) (ReadResult, error) {
	res, err := s.resolver.Resolve(ctx, userID)
	stored := loadStored(ctx, rec)
	return Reconcile(res, stored), err
}

// Reconcile picks the active selection given a resolution and the stored
// pointer. The stored value wins when it still matches a resolvable option;
// otherwise it is treated as absent and the default takes over.
func Reconcile(res Resolution, stored *RoleSelection) ReadResult {
	if stored != nil {
		if opt := res.FindOption(*stored); opt != nil {
			sel := opt.Selection()
			return ReadResult{Selection: &sel, Option: opt}
		}
	}
	if res.Highest != nil {
		sel := res.Highest.Selection()
		return ReadResult{Selection: &sel, Option: res.Highest, PersistPending: true}
	}
	return ReadResult{}
}

// Write validates the submitted triple against the currently resolvable
// options and persists it. A triple that matches no option (revoked
// membership, missing facilitator grant, deactivated or foreign organization,
// or an id the client made up) is rejected with ErrInvalidSelection and
// nothing is written.
func (s *SelectionStore) Write(ctx context.Context, userID string, sel RoleSelection, rec SelectionRecord) error {
	if !sel.Role.Valid() || sel.RoleID == "" {
		return ErrInvalidSelection
	}
	res, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		// Collaborator failure fails the write closed.
		return err
	}
	opt := res.FindOption(sel)
	if opt == nil {
		return ErrInvalidSelection
	}
	validated := opt.Selection()
	if err := rec.Save(ctx, validated); err != nil {
		return fmt.Errorf("persist selection: %w", err)
	}
	if validated.OrganizationID == "" {
		// Switching to the system-wide option drops any leftover
		// organization component.
		return s.Clear(ctx, userID, rec)
	}
	return nil
}

// Clear removes the persisted organization component, used when switching to
// the system-wide facilitator option where no organization applies.
func (s *SelectionStore) Clear(ctx context.Context, userID string, rec SelectionRecord) error {
	return rec.ClearOrganization(ctx)
}

func loadStored(ctx context.Context, rec SelectionRecord) *RoleSelection {
	if rec == nil {
		return nil
	}
	stored, err := rec.Load(ctx)
	if err != nil {
		return nil
	}
	return stored
}
