// Package simplecms implements the resource lifecycle layer of a small
// content-management backend: slug allocation, image asset reconciliation,
// cache-aside reads with scoped invalidation, and lifecycle event publishing
// for a set of near-identical resource kinds (blog posts, projects, services,
// trusted clients).
//
// The package is transport-agnostic. HTTP routing, authentication and
// multipart parsing live in pkg/simplecms/api; this package consumes an
// authenticated owner id, a validated field set and already-received upload
// handles, and produces persisted records, cache entries and notification
// events.
package simplecms
