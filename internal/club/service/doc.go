// Package service implements the club application services.
//
// Services own orchestration: authorization checks, cache-aside reads,
// synchronous cache eviction on writes, and the optimistic retry loop for
// registration counters. Domain rules live in the domain package; persistence
// behind the storage interfaces. Each service takes an injectable clock and
// ID generator so tests control time and identity.
package service
