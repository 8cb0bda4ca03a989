// Package registry owns the merged channel → stream table.
//
// A Registry is created from a catalog and only mutated through Merge by a
// single writer. Once every source has been merged the registry is frozen
// and ranked views are read from it. Diagnostics is an optional companion
// that records every observation by its raw, unresolved name.
//
// Deny and allow substrings are matched against both the normalized URI and
// the URI as it appeared in the source. Two spellings of one normalized URI
// can therefore be treated differently: "http://host:80/a" is denied by a
// "host:80" rule while "http://host/a" is not, yet both count toward the
// same record when admitted.
package registry
