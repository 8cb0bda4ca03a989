// Package preflight provides readiness checks for the filesystem paths and
// playlist sources a run depends on.
//
// The run command calls RunAll before fetching anything; a failed path check
// aborts the run because nothing could be exported anyway. The "iptv check"
// command prints every result, including optional source reachability.
package preflight
