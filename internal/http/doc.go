// Package http provides HTTP handlers and middleware for the timetrack API.
//
// The router exposes the following endpoints:
//   - POST /api/register: creates an account and issues a session token. Body:
//     {"username","password","displayName"}. Response: {"user","token","expiresAt"}
//     with the token also surfaced via the `X-Session-Token` header and a
//     `session_token` cookie.
//   - POST /api/login: authenticates and issues a session token with the same
//     response shape as registration.
//   - POST /api/logout: revokes the current session token extracted from the
//     Authorization header or session cookie. Returns 204 No Content and clears
//     the cookie.
//   - GET /api/user: returns the authenticated account.
//   - POST /api/time-entries: punches in. GET /api/time-entries/active returns
//     the open entry, GET /api/time-entries/recent lists the newest entries,
//     PATCH /api/time-entries/{id} punches out, and PUT /api/time-entries/{id}
//     replaces the labels of an active entry. All exchange the `timeEntryDTO`
//     payload defined in entry_handler.go.
//   - GET /api/stats/daily and GET /api/stats/weekly: derived rollups exchanging
//     the DTOs defined in stats_handler.go.
//   - GET /api/reports/weekly: a weekly report rendered as JSON or CSV depending
//     on the `format` query parameter.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
