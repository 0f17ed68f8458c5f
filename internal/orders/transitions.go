// Package orders holds the order status state machine and the actor rules
// for moving an order through it. Both are plain data tables so adding a
// status or an actor rule is a one-place change.
package orders

import (
	"errors"
	"fmt"
)

// Status is an order lifecycle status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Actor is a caller's relationship to a specific order, resolved by the
// handler before any rule is consulted. An unrelated caller never reaches
// this package.
type Actor string

const (
	ActorBuyer  Actor = "buyer"  // the buyer who placed the order
	ActorSeller Actor = "seller" // the seller the order is scoped to
	ActorAdmin  Actor = "admin"
)

var (
	// ErrInvalidTransition: the target status is not reachable from the
	// current one, for any actor.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrActorNotAllowed: the transition exists but this actor may not
	// perform it.
	ErrActorNotAllowed = errors.New("actor not allowed for this transition")
)

// transitionRules is the single source of truth for the state machine:
// for each current status, the reachable target statuses and the actors
// allowed to perform each move. Fulfilment moves belong to the seller (or
// admin); cancellation is open to all three parties while the order has not
// shipped. 'shipped' and 'delivered' cannot be cancelled here - returns and
// refunds are a separate flow.
var transitionRules = map[Status]map[Status][]Actor{
	StatusPending: {
		StatusConfirmed: {ActorSeller, ActorAdmin},
		StatusCancelled: {ActorBuyer, ActorSeller, ActorAdmin},
	},
	StatusConfirmed: {
		StatusProcessing: {ActorSeller, ActorAdmin},
		StatusCancelled:  {ActorBuyer, ActorSeller, ActorAdmin},
	},
	StatusProcessing: {
		StatusShipped:   {ActorSeller, ActorAdmin},
		StatusCancelled: {ActorBuyer, ActorSeller, ActorAdmin},
	},
	StatusShipped: {
		StatusDelivered: {ActorSeller, ActorAdmin},
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

// ParseStatus validates a status string from the outside world.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Authorize reports whether 'by' may move an order from 'from' to 'to'.
// An illegal edge fails ErrInvalidTransition regardless of actor; a legal
// edge attempted by the wrong actor fails ErrActorNotAllowed.
func Authorize(from, to Status, by Actor) error {
	targets, ok := transitionRules[from]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, from)
	}
	actors, ok := targets[to]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	for _, a := range actors {
		if a == by {
			return nil
		}
	}
	return fmt.Errorf("%w: %s may not move an order %s -> %s", ErrActorNotAllowed, by, from, to)
}

// CanTransition reports whether the edge exists for any actor.
func CanTransition(from, to Status) bool {
	_, ok := transitionRules[from][to]
	return ok
}
