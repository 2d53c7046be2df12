// Package session manages the authenticated-identity lifecycle of a
// school-dashboard client process: establishing a session against the
// REST backend, persisting it across restarts, restoring and verifying
// it, and gating role-scoped routes.
//
// Session lifecycle:
//   - Manager owns SessionState and is its only writer. Login installs
//     user and tokens atomically; Logout clears both together; a failed
//     login never destroys an existing session.
//   - Bootstrapper runs once per process start, seeding state from the
//     Store. It performs no network calls; a token-only session is
//     upgraded lazily by the guard integration through VerifySession,
//     which fails closed.
//
// Persistence:
//   - Store writes through to two backends (cookie jar primary, file
//     fallback) so either surviving a restart restores the session.
//     Reads sanitize the "undefined"/"null" sentinels older clients
//     serialized; writing a sentinel is equivalent to removal.
//
// Route gating:
//   - Decide is a pure function from a state Snapshot and a role
//     allow-list to a navigation Decision. RouteGuard adapts it to
//     go-router middleware, stashing the attempted URL on redirect and
//     de-duplicating concurrent verification through the Manager.
package session
