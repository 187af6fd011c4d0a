// Package store provides the key-value store used by the OAuth subsystem:
// a minimal {get, put with TTL, delete} interface with an in-memory backend
// for single-process deployments and a Valkey backend for deployments where
// stored tokens must survive restarts.
package store
