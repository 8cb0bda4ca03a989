// Package canon maps the many spellings of a channel name found in public
// playlists onto one canonical key.
//
// Canonicalization runs in three stages: whitespace trimming with Unicode NFC
// composition, traditional to simplified Han conversion (skipped for names
// that carry kana or hangul), and a prefix-dispatched rule chain. Rules are
// tried in order and the first one whose prefix matches runs exclusively.
package canon
