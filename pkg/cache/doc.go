// Package cache memoises chat-completion responses by request fingerprint.
//
// Two independent layers are provided and composed by the client:
//
//   - Memory, a bounded LRU of raw response bodies (default 1024 entries).
//   - Disk, an optional directory holding one <fingerprint>.json file per
//     response. It is never evicted and survives process restarts.
//
// Fingerprint decides which requests share an entry. It hashes the model,
// messages, response format and sampling parameters; end-user ids and
// client-side metadata are excluded.
package cache
