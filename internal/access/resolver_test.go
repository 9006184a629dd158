package access

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type stubProvider struct {
	membershipsFn func(ctx context.Context, userID string) ([]Membership, error)
	facilitatorFn func(ctx context.Context, userID string) (bool, error)
	ownedOrgsFn   func(ctx context.Context, userID string) ([]Organization, error)
	orgRefsFn     func(ctx context.Context, ids []string) (map[string]string, error)
}

func (s *stubProvider) ListActiveMemberships(ctx context.Context, userID string) ([]Membership, error) {
	if s.membershipsFn != nil {
		return s.membershipsFn(ctx, userID)
	}
	return nil, nil
}

func (s *stubProvider) IsFacilitator(ctx context.Context, userID string) (bool, error) {
	if s.facilitatorFn != nil {
		return s.facilitatorFn(ctx, userID)
	}
	return false, nil
}

func (s *stubProvider) OwnedActiveOrganizations(ctx context.Context, userID string) ([]Organization, error) {
	if s.ownedOrgsFn != nil {
		return s.ownedOrgsFn(ctx, userID)
	}
	return nil, nil
}

func (s *stubProvider) OrganizationRefs(ctx context.Context, ids []string) (map[string]string, error) {
	if s.orgRefsFn != nil {
		return s.orgRefsFn(ctx, ids)
	}
	refs := make(map[string]string, len(ids))
	for _, id := range ids {
		refs[id] = "FCP " + id
	}
	return refs, nil
}

func TestResolveEmptyWithoutMembershipsOrGrant(t *testing.T) {
	r := NewResolver(&stubProvider{})
	res, err := r.Resolve(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Options) != 0 {
		t.Fatalf("expected empty option set, got %v", res.Options)
	}
	if res.Highest != nil {
		t.Fatalf("expected nil highest, got %v", res.Highest)
	}
}

func TestResolvePriorityOrder(t *testing.T) {
	provider := &stubProvider{
		membershipsFn: func(_ context.Context, _ string) ([]Membership, error) {
			return []Membership{
				{ID: "m-tutor", UserID: "user-1", OrganizationID: "01ORG3", Role: RoleTutor, Active: true},
				{ID: "m-dir", UserID: "user-1", OrganizationID: "01ORG2", Role: RoleDirector, Active: true},
				{ID: "m-sec", UserID: "user-1", OrganizationID: "01ORG1", Role: RoleSecretario, Active: true},
			}, nil
		},
		facilitatorFn: func(_ context.Context, _ string) (bool, error) { return true, nil },
		ownedOrgsFn: func(_ context.Context, _ string) ([]Organization, error) {
			return []Organization{{ID: "01ORG9", Name: "FCP Norte", Active: true}}, nil
		},
	}

	res, err := NewResolver(provider).Resolve(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	ids := make([]string, 0, len(res.Options))
	for _, o := range res.Options {
		ids = append(ids, o.RoleID)
	}
	want := []string{SystemFacilitatorID, "facilitador-01ORG9", "m-dir", "m-sec", "m-tutor"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("unexpected option order: %v", ids)
	}
	if res.Highest == nil || res.Highest.RoleID != SystemFacilitatorID {
		t.Fatalf("expected system facilitator as highest, got %v", res.Highest)
	}
}

func TestResolveTieBreaksByEarliestOrganization(t *testing.T) {
	provider := &stubProvider{
		membershipsFn: func(_ context.Context, _ string) ([]Membership, error) {
			return []Membership{
				{ID: "m-b", UserID: "user-1", OrganizationID: "01BBBB", Role: RoleDirector, Active: true},
				{ID: "m-a", UserID: "user-1", OrganizationID: "01AAAA", Role: RoleDirector, Active: true},
			}, nil
		},
	}

	res, err := NewResolver(provider).Resolve(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Highest == nil || res.Highest.OrganizationID != "01AAAA" {
		t.Fatalf("expected earliest organization to win, got %v", res.Highest)
	}
}

func TestResolveSkipsInactiveAndDuplicateMemberships(t *testing.T) {
	provider := &stubProvider{
		membershipsFn: func(_ context.Context, _ string) ([]Membership, error) {
			return []Membership{
				{ID: "m-1", UserID: "user-1", OrganizationID: "01ORG1", Role: RoleTutor, Active: true},
				{ID: "m-1", UserID: "user-1", OrganizationID: "01ORG1", Role: RoleTutor, Active: true},
				{ID: "m-2", UserID: "user-1", OrganizationID: "01ORG2", Role: RoleDirector, Active: false},
				{ID: "m-3", UserID: "user-1", OrganizationID: "01ORG3", Role: Role("invitado"), Active: true},
			}, nil
		},
	}

	res, err := NewResolver(provider).Resolve(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Options) != 1 || res.Options[0].RoleID != "m-1" {
		t.Fatalf("expected single tutor option, got %v", res.Options)
	}
}

func TestResolveIgnoresFacilitadorMembershipRows(t *testing.T) {
	// Facilitator options come from the grant, never from a membership row;
	// a facilitador-role membership must not mint an elevated option.
	provider := &stubProvider{
		membershipsFn: func(_ context.Context, _ string) ([]Membership, error) {
			return []Membership{
				{ID: "m-fac", UserID: "user-1", OrganizationID: "01ORG1", Role: RoleFacilitador, Active: true},
				{ID: "m-tut", UserID: "user-1", OrganizationID: "01ORG1", Role: RoleTutor, Active: true},
			}, nil
		},
	}

	res, err := NewResolver(provider).Resolve(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Options) != 1 || res.Options[0].RoleID != "m-tut" {
		t.Fatalf("expected only the tutor option, got %v", res.Options)
	}
}

func TestResolveMembershipFailureDegradesToEmpty(t *testing.T) {
	provider := &stubProvider{
		membershipsFn: func(_ context.Context, _ string) ([]Membership, error) {
			return nil, errors.New("connection refused")
		},
	}

	res, err := NewResolver(provider).Resolve(context.Background(), "user-1")
	if !errors.Is(err, ErrCollaborator) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
	if len(res.Options) != 0 || res.Highest != nil {
		t.Fatalf("expected empty resolution, got %+v", res)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	provider := &stubProvider{
		membershipsFn: func(_ context.Context, _ string) ([]Membership, error) {
			return []Membership{
				{ID: "m-2", UserID: "user-1", OrganizationID: "01ORG2", Role: RoleSecretario, Active: true},
				{ID: "m-1", UserID: "user-1", OrganizationID: "01ORG1", Role: RoleTutor, Active: true},
			}, nil
		},
	}
	r := NewResolver(provider)

	first, err := r.Resolve(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for i := 0; i < 5; i++ {
		next, err := r.Resolve(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("resolution changed between calls: %+v vs %+v", first, next)
		}
	}
}

func TestResolveFillsOrganizationRefs(t *testing.T) {
	provider := &stubProvider{
		membershipsFn: func(_ context.Context, _ string) ([]Membership, error) {
			return []Membership{
				{ID: "m-1", UserID: "user-1", OrganizationID: "01ORG1", Role: RoleDirector, Active: true},
			}, nil
		},
		orgRefsFn: func(_ context.Context, ids []string) (map[string]string, error) {
			if len(ids) != 1 || ids[0] != "01ORG1" {
				t.Fatalf("unexpected ref lookup: %v", ids)
			}
			return map[string]string{"01ORG1": "FCP Centro"}, nil
		},
	}

	res, err := NewResolver(provider).Resolve(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Options[0].OrganizationRef != "FCP Centro" {
		t.Fatalf("expected organization ref, got %q", res.Options[0].OrganizationRef)
	}
}

func TestResolveRefLookupFailureKeepsOptions(t *testing.T) {
	provider := &stubProvider{
		membershipsFn: func(_ context.Context, _ string) ([]Membership, error) {
			return []Membership{
				{ID: "m-1", UserID: "user-1", OrganizationID: "01ORG1", Role: RoleDirector, Active: true},
			}, nil
		},
		orgRefsFn: func(_ context.Context, _ []string) (map[string]string, error) {
			return nil, errors.New("timeout")
		},
	}

	res, err := NewResolver(provider).Resolve(context.Background(), "user-1")
	if !errors.Is(err, ErrCollaborator) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
	if len(res.Options) != 1 || res.Highest == nil {
		t.Fatalf("ref failure must not shrink options: %+v", res)
	}
}
