package access

import "context"

// GateResult is the coarse per-session reachability decision.
type GateResult struct {
	// Navigable reports whether any resolvable role exists; it gates the
	// protected navigation surface as a whole, independent of which role is
	// selected.
	Navigable bool
	// ActiveSelection is the reconciled selection, nil when unresolved.
	ActiveSelection *RoleSelection
	// ActiveOption backs ActiveSelection with the full option data.
	ActiveOption *RoleOption
	// PersistPending mirrors ReadResult.PersistPending.
	PersistPending bool
}

// Gate is the entry guard composing resolution and selection state: it
// decides whether protected functionality is reachable at all. Fine-grained
// per-action decisions stay with the Evaluator.
type Gate struct {
	resolver *Resolver
}

// NewGate constructs a Gate over the resolver.
func NewGate(resolver *Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// Guard resolves the user's role set and reconciles the stored selection.
//
// On a membership-lookup failure it is conservative: the protected
// navigation surface is suppressed while the session itself proceeds, since
// the data layer's own defenses remain in force. The error is returned for
// logging only.
func (g *Gate) Guard(ctx context.Context, userID string, rec SelectionRecord) (GateResult, error) {
	res, err := g.resolver.Resolve(ctx, userID)
	rr := Reconcile(res, loadStored(ctx, rec))
	return GateResult{
		Navigable:       len(res.Options) > 0,
		ActiveSelection: rr.Selection,
		ActiveOption:    rr.Option,
		PersistPending:  rr.PersistPending,
	}, err
}
