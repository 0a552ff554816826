// ABOUTME: Package documentation for the gateway HTTP layer
// ABOUTME: Describes the API surface, error conventions, and the SSE event stream

// Package gateway exposes the chat backend over HTTP.
//
// # API surface
//
// The gateway registers REST routes for conversations, messages, and
// agents under /api, two search routes backed by the instant answer
// client, and a per-conversation SSE stream at
// /api/conversations/{id}/events. A /health endpoint reports liveness.
//
// # Error conventions
//
// Validation failures return 400 and missing records return 404, both
// with a {"error": "..."} JSON body. Upstream search faults are not HTTP
// errors: the search routes always answer 200 with a success flag, and a
// failed lookup carries the fault message in the payload.
//
// # Live updates
//
// The events route subscribes the client to the conversation's event
// feed. Message creation, renames, and deletions are pushed as SSE
// events named after the event type, with the event JSON in the data
// field. The stream ends when the client disconnects.
package gateway
