// Package fswatch provides filesystem change watching primitives for watchify.
//
// The Watcher API is safe for concurrent use and delivers best-effort changes:
// callers should assume changes can be coalesced or dropped under load and use
// callbacks to trigger higher-level refreshes rather than rely on exact ordering.
package fswatch
