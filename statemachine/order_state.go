package statemachine

import (
	"strings"

	"food-delivery-backend/apperr"
	"food-delivery-backend/models"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus `json:"from"`
	To    models.OrderStatus `json:"to"`
	Actor models.Role        `json:"actor"`
	// Forced transitions also assign a delivery partner.
	Forced bool `json:"forced,omitempty"`
}

// forwardPath is the non-cancel lifecycle in order.
var forwardPath = []models.OrderStatus{
	models.StatusPending,
	models.StatusConfirmed,
	models.StatusPreparing,
	models.StatusOutForDelivery,
	models.StatusDelivered,
}

// validTransitions is the authoritative state machine definition
var validTransitions = buildTransitions()

func buildTransitions() []Transition {
	ts := []Transition{
		// Customers may only withdraw an order nobody has accepted yet
		{From: models.StatusPending, To: models.StatusCancelled, Actor: models.RoleCustomer},

		// Business accepts and prepares, or rejects before handover
		{From: models.StatusPending, To: models.StatusConfirmed, Actor: models.RoleBusiness},
		{From: models.StatusConfirmed, To: models.StatusPreparing, Actor: models.RoleBusiness},
		{From: models.StatusPending, To: models.StatusCancelled, Actor: models.RoleBusiness},
		{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: models.RoleBusiness},
		{From: models.StatusPreparing, To: models.StatusCancelled, Actor: models.RoleBusiness},

		// Assigned partner completes or abandons the delivery
		{From: models.StatusOutForDelivery, To: models.StatusDelivered, Actor: models.RoleDelivery},
		{From: models.StatusOutForDelivery, To: models.StatusCancelled, Actor: models.RoleDelivery},
	}

	// Admin may move any non-terminal order forward or cancel it.
	for i, from := range forwardPath {
		if from.Terminal() {
			continue
		}
		for _, to := range forwardPath[i+1:] {
			ts = append(ts, Transition{From: from, To: to, Actor: models.RoleAdmin})
		}
		ts = append(ts, Transition{From: from, To: models.StatusCancelled, Actor: models.RoleAdmin})
		ts = append(ts, Transition{From: from, To: models.StatusOutForDelivery, Actor: models.RoleAdmin, Forced: true})
	}
	return ts
}

// transitionKey is used to look up valid transitions quickly
type transitionKey struct {
	From   models.OrderStatus
	To     models.OrderStatus
	Actor  models.Role
	Forced bool
}

// Build a lookup map for O(1) validation
var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor, t.Forced}] = true
	}
	return m
}()

// ValidTransitionsFrom returns all valid next states from a given state for actor.
func ValidTransitionsFrom(status models.OrderStatus, actor models.Role) []models.OrderStatus {
	nexts := []models.OrderStatus{}
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && t.Actor == actor && !t.Forced && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor models.Role) error {
	if !to.Valid() {
		return apperr.Validation("unknown order status %q", to)
	}
	if from.Terminal() {
		return apperr.InvalidTransition("order is %s; no further transitions are accepted", from)
	}
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return apperr.InvalidTransition(
		"invalid transition: %s → %s is not allowed for %s. Valid transitions from %s are: %s",
		from, to, actor, from, describeValidFrom(from, actor),
	)
}

// CanForceAssign checks whether an admin may force an order in status from
// to out_for_delivery while assigning a partner.
func CanForceAssign(from models.OrderStatus) error {
	if transitionMap[transitionKey{From: from, To: models.StatusOutForDelivery, Actor: models.RoleAdmin, Forced: true}] {
		return nil
	}
	return apperr.InvalidTransition("order is %s; it can no longer be assigned", from)
}

func describeValidFrom(status models.OrderStatus, actor models.Role) string {
	nexts := ValidTransitionsFrom(status, actor)
	if len(nexts) == 0 {
		return "none"
	}
	parts := make([]string, len(nexts))
	for i, s := range nexts {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	out := make([]Transition, len(validTransitions))
	copy(out, validTransitions)
	return out
}
