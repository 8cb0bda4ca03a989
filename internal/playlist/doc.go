// Package playlist turns M3U and "category,#genre#" text playlists into a
// stream of (category, name, uri) entries.
//
// Parsing is lazy and single pass. Malformed lines are skipped rather than
// reported as errors; only a failure of the underlying reader surfaces via
// Parser.Err.
package playlist
