// Package git looks up per-file commit history for the content directory so
// the date transformer can use version-control timestamps.
//
// A DateSource opens the repository containing the content directory once and
// answers created/modified lookups for individual files. Lookups are cached
// for the lifetime of the source and, when a DateCache is attached, across
// builds keyed by the HEAD commit.
package git
