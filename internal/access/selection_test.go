package access

import (
	"context"
	"errors"
	"testing"
)

type memoryRecord struct {
	stored  *RoleSelection
	saves   int
	clears  int
	loadErr error
	saveErr error
}

func (m *memoryRecord) Load(_ context.Context) (*RoleSelection, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.stored == nil {
		return nil, nil
	}
	cp := *m.stored
	return &cp, nil
}

func (m *memoryRecord) Save(_ context.Context, sel RoleSelection) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	cp := sel
	m.stored = &cp
	return nil
}

func (m *memoryRecord) ClearOrganization(_ context.Context) error {
	m.clears++
	if m.stored != nil {
		m.stored.OrganizationID = ""
	}
	return nil
}

func directorProvider() *stubProvider {
	return &stubProvider{
		membershipsFn: func(_ context.Context, _ string) ([]Membership, error) {
			return []Membership{
				{ID: "m-dir", UserID: "user-1", OrganizationID: "01ORG1", Role: RoleDirector, Active: true},
				{ID: "m-tut", UserID: "user-1", OrganizationID: "01ORG2", Role: RoleTutor, Active: true},
			}, nil
		},
	}
}

func TestReadWithoutStoredFallsBackToHighest(t *testing.T) {
	store := NewSelectionStore(NewResolver(directorProvider()))
	rec := &memoryRecord{}

	rr, err := store.Read(context.Background(), "user-1", rec)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rr.Selection == nil || rr.Selection.RoleID != "m-dir" || rr.Selection.Role != RoleDirector {
		t.Fatalf("expected director default, got %+v", rr.Selection)
	}
	if !rr.PersistPending {
		t.Fatal("expected persistence to be pending")
	}
	if rec.saves != 0 {
		t.Fatalf("read must not write, saw %d saves", rec.saves)
	}
}

func TestReadKeepsValidStoredSelection(t *testing.T) {
	store := NewSelectionStore(NewResolver(directorProvider()))
	rec := &memoryRecord{stored: &RoleSelection{RoleID: "m-tut", Role: RoleTutor, OrganizationID: "01ORG2"}}

	rr, err := store.Read(context.Background(), "user-1", rec)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rr.Selection == nil || rr.Selection.RoleID != "m-tut" {
		t.Fatalf("stored selection should win over the default, got %+v", rr.Selection)
	}
	if rr.PersistPending {
		t.Fatal("valid stored selection must not be marked pending")
	}
}

func TestReadDiscardsStaleStoredSelection(t *testing.T) {
	// The tutor membership backing the stored selection has been revoked
	// between write and read.
	provider := &stubProvider{
		membershipsFn: func(_ context.Context, _ string) ([]Membership, error) {
			return []Membership{
				{ID: "m-dir", UserID: "user-1", OrganizationID: "01ORG1", Role: RoleDirector, Active: true},
			}, nil
		},
	}
	store := NewSelectionStore(NewResolver(provider))
	rec := &memoryRecord{stored: &RoleSelection{RoleID: "m-tut", Role: RoleTutor, OrganizationID: "01ORG2"}}

	rr, err := store.Read(context.Background(), "user-1", rec)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rr.Selection == nil || rr.Selection.RoleID != "m-dir" {
		t.Fatalf("expected fallback to current highest, got %+v", rr.Selection)
	}
	if !rr.PersistPending {
		t.Fatal("fallback selection must be marked pending")
	}
}

func TestReadEmptyResolutionYieldsNoSelection(t *testing.T) {
	store := NewSelectionStore(NewResolver(&stubProvider{}))
	rr, err := store.Read(context.Background(), "user-1", &memoryRecord{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rr.Selection != nil || rr.Option != nil {
		t.Fatalf("expected empty read result, got %+v", rr)
	}
}

func TestWriteAcceptsResolvableTriple(t *testing.T) {
	store := NewSelectionStore(NewResolver(directorProvider()))
	rec := &memoryRecord{}

	err := store.Write(context.Background(), "user-1",
		RoleSelection{RoleID: "m-tut", Role: RoleTutor, OrganizationID: "01ORG2"}, rec)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if rec.saves != 1 || rec.stored == nil || rec.stored.RoleID != "m-tut" {
		t.Fatalf("expected persisted tutor selection, got %+v", rec.stored)
	}
}

func TestWriteSystemFacilitatorClearsOrganization(t *testing.T) {
	provider := &stubProvider{
		facilitatorFn: func(_ context.Context, _ string) (bool, error) {
			return true, nil
		},
	}
	store := NewSelectionStore(NewResolver(provider))
	rec := &memoryRecord{stored: &RoleSelection{RoleID: "m-dir", Role: RoleDirector, OrganizationID: "01ORG1"}}

	err := store.Write(context.Background(), "user-1",
		RoleSelection{RoleID: SystemFacilitatorID, Role: RoleFacilitador}, rec)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if rec.saves != 1 || rec.clears != 1 {
		t.Fatalf("expected one save and one clear, got saves=%d clears=%d", rec.saves, rec.clears)
	}
	if rec.stored == nil || rec.stored.OrganizationID != "" {
		t.Fatalf("organization component not cleared: %+v", rec.stored)
	}
}

func TestWriteRejectsMissingFacilitatorGrant(t *testing.T) {
	store := NewSelectionStore(NewResolver(directorProvider()))
	rec := &memoryRecord{}

	err := store.Write(context.Background(), "user-1",
		RoleSelection{RoleID: SystemFacilitatorID, Role: RoleFacilitador}, rec)
	if !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("expected ErrInvalidSelection, got %v", err)
	}
	if rec.saves != 0 {
		t.Fatal("rejected write must not persist anything")
	}
}

func TestWriteRejectsMismatchedOrganization(t *testing.T) {
	store := NewSelectionStore(NewResolver(directorProvider()))
	rec := &memoryRecord{}

	// Valid roleId but the organization of a different membership.
	err := store.Write(context.Background(), "user-1",
		RoleSelection{RoleID: "m-tut", Role: RoleTutor, OrganizationID: "01ORG1"}, rec)
	if !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("expected ErrInvalidSelection, got %v", err)
	}
}

func TestWriteRejectsForeignRole(t *testing.T) {
	store := NewSelectionStore(NewResolver(directorProvider()))
	rec := &memoryRecord{}

	err := store.Write(context.Background(), "user-1",
		RoleSelection{RoleID: "m-dir", Role: RoleSecretario, OrganizationID: "01ORG1"}, rec)
	if !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("expected ErrInvalidSelection, got %v", err)
	}
}

func TestWriteFailsClosedOnCollaboratorError(t *testing.T) {
	provider := &stubProvider{
		membershipsFn: func(_ context.Context, _ string) ([]Membership, error) {
			return nil, errors.New("backend down")
		},
	}
	store := NewSelectionStore(NewResolver(provider))
	rec := &memoryRecord{}

	err := store.Write(context.Background(), "user-1",
		RoleSelection{RoleID: "m-dir", Role: RoleDirector, OrganizationID: "01ORG1"}, rec)
	if !errors.Is(err, ErrCollaborator) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
	if rec.saves != 0 {
		t.Fatal("write must fail closed on collaborator failure")
	}
}

func TestClearRemovesOrganizationComponentOnly(t *testing.T) {
	store := NewSelectionStore(NewResolver(directorProvider()))
	rec := &memoryRecord{stored: &RoleSelection{RoleID: SystemFacilitatorID, Role: RoleFacilitador, OrganizationID: "01ORG1"}}

	if err := store.Clear(context.Background(), "user-1", rec); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if rec.stored.OrganizationID != "" {
		t.Fatal("expected organization component to be cleared")
	}
	if rec.stored.RoleID != SystemFacilitatorID || rec.stored.Role != RoleFacilitador {
		t.Fatalf("clear must not disturb role fields, got %+v", rec.stored)
	}
}
