// Package session holds the in-memory view of every user's chat state. It is
// the single source of truth for who is idle, searching, or chatting and who
// is paired with whom while the process is running. The durable partner
// record (internal/record) only mirrors pairing state for recovery.
package session
