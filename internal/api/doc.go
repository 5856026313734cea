// Package api serves the club's HTTP JSON surface.
//
// Routes are grouped by resource under /api/v1: events (with nested
// participants), users, and admins. The caller's identity is the student ID
// in the X-Student-Id header; handlers pass it through to the service layer,
// which owns all authorization decisions.
//
// Responses use a single envelope: {"data": ...} on success,
// {"error": {"code", "message"}} on failure. Error codes are stable strings
// mapped from domain errors in writeError.
package api
