// Package domain defines the core business entities and logic for club management.
//
// The model is centered around a few key concepts:
//
// # Events
//
// An Event is a scheduled club activity (study session, rehearsal, performance).
// Events nest: a child event keeps a weak reference to its parent and a
// denormalized reference to the depth-0 root of its tree. Ancestry is computed
// once at creation and never re-derived. Capacity accounting lives exclusively
// on the root: MaxParticipants and CurrentParticipants on non-root events are
// never consulted, so every sub-event of a tree draws from one shared headcount.
//
// # Participants
//
// A Participant records one user's registration in one event tree. Rows are
// always anchored to the tree root, which is what makes the (root, user) pair
// unique and the capacity pool shared across depths.
//
// # Users
//
// A User moves through a closed status lifecycle (pending, active, inactive,
// rejected, suspended, deleted) driven by an explicit transition table. Only
// active users may register for events.
//
// # Admins
//
// An Admin record marks a user as an administrator and carries appointment
// audit fields. Administrators may act on behalf of other users.
package domain
