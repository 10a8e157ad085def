// Package domain defines the core domain types and collaborator interfaces.
//
// This package contains concept-oriented files (submission.go, address.go,
// region.go, profile.go) with shared types and cross-cutting interfaces.
// No implementation code - just contracts. Prevents circular imports by
// keeping interfaces on the consumer side.
package domain
