package routing

import (
	"context"
	"errors"
)

// Engine decides who a call being set up should be connected to.
//
// Provider webhook handlers depend on this abstraction only; they translate the
// provider's request into a Request and render the returned Decision.
type Engine interface {
	Decide(ctx context.Context, req Request) (Decision, error)
}

// Direction is how the provider describes the call leg.
// Only "incoming" is meaningful; every other value means the call was originated by us.
type Direction string

const DirectionIncoming Direction = "incoming"

// Request is the provider-agnostic view of a connect webhook.
type Request struct {
	CallSid     string
	From        string
	To          string
	Direction   Direction
	Digits      string
	CustomField string
}

var (
	ErrSelfLoop       = errors.New("routing: no destination other than the caller")
	ErrNoDestinations = errors.New("routing: no parties configured")
)

// Parties are the two counterpart numbers and the fallback target for anyone else.
type Parties struct {
	Primary   string
	Secondary string
	Default   string
}

// PartyEngine connects the primary and secondary parties to each other and sends every
// other caller to the default target. It is a pure function of its configuration and
// the request; it holds no state between calls.
type PartyEngine struct {
	Parties  Parties
	CallerID string
	Policy   Policy
}

func NewPartyEngine(parties Parties, callerID string, policy Policy) *PartyEngine {
	return &PartyEngine{Parties: parties, CallerID: callerID, Policy: policy}
}

// Linked returns the counterpart of n.
func (e *PartyEngine) Linked(n string) string {
	switch {
	case n != "" && n == e.Parties.Primary:
		return e.Parties.Secondary
	case n != "" && n == e.Parties.Secondary:
		return e.Parties.Primary
	default:
		return e.Parties.Default
	}
}

func (e *PartyEngine) Decide(ctx context.Context, req Request) (Decision, error) {
	if e.Parties.Primary == "" && e.Parties.Secondary == "" && e.Parties.Default == "" {
		return Decision{}, ErrNoDestinations
	}

	caller := req.From
	var dest, reason string
	// alternates are tried in order when dest would loop back to the caller.
	var alternates []string

	if req.Direction == DirectionIncoming {
		if caller != "" && caller == e.Parties.Primary {
			dest, reason = e.Parties.Secondary, "primary_to_secondary"
		} else {
			dest, reason = e.Linked(caller), "linked"
		}
	} else {
		if req.To == "" {
			dest, reason = e.Parties.Secondary, "outbound_secondary"
		} else {
			dest, reason = e.Linked(req.To), "outbound_linked"
		}
		alternates = append(alternates, req.To)
	}
	alternates = append(alternates, e.Parties.Secondary, e.Parties.Primary, e.Parties.Default)

	if dest == "" || dest == caller {
		dest = ""
		for _, alt := range alternates {
			if alt != "" && alt != caller {
				dest, reason = alt, "self_loop_substituted"
				break
			}
		}
		if dest == "" {
			return Decision{}, ErrSelfLoop
		}
	}

	return e.Policy.decision(dest, e.CallerID, req.Direction, reason), nil
}
