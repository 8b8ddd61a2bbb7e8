// Package board defines the shared data types for a kudos board: the Kudo
// itself, the pending screenshot verification awaiting human approval, and
// the State snapshot that is pushed to every observer of a board.
//
// These types cross package boundaries (orchestrator, workflows, transport,
// CLI), so they live in pkg/ rather than internal/. All JSON field names are
// part of the wire contract with the browser UI and must not change casually.
package board
