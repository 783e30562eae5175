package auth

import (
	"context"
	"strings"

	"github.com/V4T54L/vsd-gateway/internal/domain"
)

// Decision is the vote of a single authorization policy.
type Decision int

const (
	// Allow grants access and stops the chain.
	Allow Decision = iota

	// Deny rejects access and stops the chain.
	Deny

	// Abstain passes the decision to the next policy.
	Abstain
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "abstain"
	}
}

// AuthorizationPolicy decides whether a verified identity may use the admin proxy.
type AuthorizationPolicy interface {
	Evaluate(ctx context.Context, id *Identity) (Decision, error)
}

// PolicyChain evaluates policies in order. The first Allow or Deny wins; if
// every policy abstains the identity is denied.
type PolicyChain []AuthorizationPolicy

func (c PolicyChain) Evaluate(ctx context.Context, id *Identity) (Decision, error) {
	for _, p := range c {
		d, err := p.Evaluate(ctx, id)
		if err != nil {
			return Deny, err
		}
		if d != Abstain {
			return d, nil
		}
	}
	return Deny, nil
}

// ClaimPolicy allows identities carrying superAdmin=true.
type ClaimPolicy struct{}

func (ClaimPolicy) Evaluate(_ context.Context, id *Identity) (Decision, error) {
	if id.SuperAdmin {
		return Allow, nil
	}
	return Abstain, nil
}

// AllowListPolicy allows a fixed set of uids.
type AllowListPolicy struct {
	uids map[string]struct{}
}

// NewAllowListPolicy builds the policy from a list of uids; blanks are ignored.
func NewAllowListPolicy(uids []string) *AllowListPolicy {
	p := &AllowListPolicy{uids: make(map[string]struct{}, len(uids))}
	for _, uid := range uids {
		if uid = strings.TrimSpace(uid); uid != "" {
			p.uids[uid] = struct{}{}
		}
	}
	return p
}

func (p *AllowListPolicy) Evaluate(_ context.Context, id *Identity) (Decision, error) {
	if _, ok := p.uids[id.UID]; ok {
		return Allow, nil
	}
	return Abstain, nil
}

// StorePolicy allows uids that have a document in the admins collection.
type StorePolicy struct {
	store domain.DocumentStore
}

func NewStorePolicy(store domain.DocumentStore) *StorePolicy {
	return &StorePolicy{store: store}
}

func (p *StorePolicy) Evaluate(ctx context.Context, id *Identity) (Decision, error) {
	ok, err := p.store.Exists(ctx, domain.CollectionAdmins, id.UID)
	if err != nil {
		return Deny, err
	}
	if ok {
		return Allow, nil
	}
	return Abstain, nil
}

// NewAdminPolicy returns the admin chain: superAdmin claim, then the static
// allow-list, then admins collection membership.
func NewAdminPolicy(allowList []string, store domain.DocumentStore) PolicyChain {
	return PolicyChain{
		ClaimPolicy{},
		NewAllowListPolicy(allowList),
		NewStorePolicy(store),
	}
}
