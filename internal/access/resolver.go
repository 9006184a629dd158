package access

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// MembershipProvider yields the organizational memberships and facilitator
// status of a user. Implementations live behind the data layer; the resolver
// treats them as the single source of truth on every call.
type MembershipProvider interface {
	// ListActiveMemberships returns the user's active memberships in active
	// organizations.
	ListActiveMemberships(ctx context.Context, userID string) ([]Membership, error)
	// IsFacilitator reports whether the user holds a facilitator grant.
	IsFacilitator(ctx context.Context, userID string) (bool, error)
	// OwnedActiveOrganizations returns the active organizations owned by the
	// user, in creation order.
	OwnedActiveOrganizations(ctx context.Context, userID string) ([]Organization, error)
	// OrganizationRefs maps organization ids to display references.
	OrganizationRefs(ctx context.Context, ids []string) (map[string]string, error)
}

// Resolution is the outcome of resolving a user's role set.
type Resolution struct {
	Options []RoleOption
	Highest *RoleOption
}

// FindOption returns the option a selection points at, if any.
func (r Resolution) FindOption(sel RoleSelection) *RoleOption {
	for i := range r.Options {
		if sel.Matches(r.Options[i]) {
			return &r.Options[i]
		}
	}
	return nil
}

// Resolver computes the set of roles available to a user and a default
// ("highest") option. It holds no state of its own: two calls with unchanged
// underlying data yield identical resolutions.
type Resolver struct {
	provider MembershipProvider
}

// NewResolver constructs a Resolver over the given membership provider.
func NewResolver(provider MembershipProvider) *Resolver {
	return &Resolver{provider: provider}
}

// Resolve returns the resolvable options and the default choice for userID.
//
// A failing membership lookup degrades to an empty option set: authorization
// fails closed while page rendering proceeds. The returned error exists for
// observability only; callers must treat "no roles" as "no protected UI",
// never as a hard failure.
func (r *Resolver) Resolve(ctx context.Context, userID string) (Resolution, error) {
	if r == nil || r.provider == nil || userID == "" {
		return Resolution{}, nil
	}

	var (
		memberships []Membership
		facilitator bool
		ownedOrgs   []Organization
	)

	// The three lookups are independent reads, issued in parallel and
	// joined before resolution proceeds.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		memberships, err = r.provider.ListActiveMemberships(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		facilitator, err = r.provider.IsFacilitator(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		ownedOrgs, err = r.provider.OwnedActiveOrganizations(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Resolution{}, fmt.Errorf("%w: %v", ErrCollaborator, err)
	}

	options := buildOptions(memberships, facilitator, ownedOrgs)

	var refErr error
	if ids := membershipOrgIDs(options); len(ids) > 0 {
		refs, err := r.provider.OrganizationRefs(ctx, ids)
		if err != nil {
			// Display references are cosmetic; a failed lookup leaves them
			// blank without shrinking the option set.
			refErr = fmt.Errorf("%w: %v", ErrCollaborator, err)
		} else {
			for i := range options {
				if options[i].OrganizationRef == "" {
					options[i].OrganizationRef = refs[options[i].OrganizationID]
				}
			}
		}
	}

	res := Resolution{Options: options}
	if len(options) > 0 {
		res.Highest = &options[0]
	}
	return res, refErr
}

func buildOptions(memberships []Membership, facilitator bool, ownedOrgs []Organization) []RoleOption {
	var options []RoleOption

	if facilitator {
		options = append(options, RoleOption{
			RoleID: SystemFacilitatorID,
			Role:   RoleFacilitador,
		})
		for _, org := range ownedOrgs {
			if !org.Active {
				continue
			}
			options = append(options, RoleOption{
				RoleID:          FacilitatorOptionID(org.ID),
				Role:            RoleFacilitador,
				OrganizationID:  org.ID,
				OrganizationRef: org.Name,
			})
		}
	}

	seen := make(map[string]struct{}, len(memberships))
	for _, m := range memberships {
		if !m.Active || !m.Role.Valid() || m.ID == "" {
			continue
		}
		// facilitador is never a membership role: facilitator options come
		// only from the grant above, so a rogue membership row cannot mint
		// one.
		if m.Role == RoleFacilitador {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		options = append(options, RoleOption{
			RoleID:         m.ID,
			Role:           m.Role,
			OrganizationID: m.OrganizationID,
		})
	}

	// Priority tiers first; within a tier, the earliest-created organization
	// wins. Organization ids are ULIDs, so lexicographic order is creation
	// order.
	sort.SliceStable(options, func(i, j int) bool {
		pi, pj := optionPriority(options[i]), optionPriority(options[j])
		if pi != pj {
			return pi < pj
		}
		if options[i].OrganizationID != options[j].OrganizationID {
			return options[i].OrganizationID < options[j].OrganizationID
		}
		return options[i].RoleID < options[j].RoleID
	})
	return options
}

// optionPriority orders the tiers used to pick the default option:
// system facilitator, facilitator over an owned organization, director,
// secretario, tutor.
func optionPriority(o RoleOption) int {
	switch {
	case o.RoleID == SystemFacilitatorID:
		return 0
	case o.Role == RoleFacilitador:
		return 1
	case o.Role == RoleDirector:
		return 2
	case o.Role == RoleSecretario:
		return 3
	case o.Role == RoleTutor:
		return 4
	}
	return 5
}

func membershipOrgIDs(options []RoleOption) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, o := range options {
		if o.OrganizationID == "" || o.OrganizationRef != "" {
			continue
		}
		if _, ok := seen[o.OrganizationID]; ok {
			continue
		}
		seen[o.OrganizationID] = struct{}{}
		ids = append(ids, o.OrganizationID)
	}
	return ids
}
