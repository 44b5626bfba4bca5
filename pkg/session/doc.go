/*
Package session implements the Session Store.

The Manager serializes every read-modify-write of one user key behind a
ref-counted mutex (plus an optional distributed lock across replicas), keeps a
bounded deep-copied history for back-navigation, and owns the cancellation
scope of each session: enrichment calls bound with Bind and continuations
registered with Schedule stop when the session is cleared, reset or evicted.

The Sweeper evicts idle sessions on a fixed interval, taking the same per-key
lock as request handling.
*/
package session
