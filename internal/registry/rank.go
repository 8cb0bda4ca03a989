package registry

import "slices"

// RankOptions limits a ranked view. Limit <= 0 means no cap.
type RankOptions struct {
	Limit    int
	IPv4Only bool
}

// Ranked is one entry of a ranked view. Index is 1-based within the view.
type Ranked struct {
	URI      string
	Index    int
	Count    int
	Priority int
	IPv6     bool
}

// Ranked returns the records of name ordered by priority, highest first,
// with creation order breaking ties.
func (r *Registry) Ranked(name string, opts RankOptions) []Ranked {
	ch, ok := r.channels[name]
	if !ok {
		return nil
	}
	return rank(ch.records, !r.frozen, opts)
}

func rank(records []*Record, needSort bool, opts RankOptions) []Ranked {
	if needSort {
		records = slices.Clone(records)
		sortRecords(records)
	}
	out := make([]Ranked, 0, len(records))
	for _, rec := range records {
		if opts.IPv4Only && rec.IPv6 {
			continue
		}
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
		out = append(out, Ranked{
			URI:      rec.URI,
			Index:    len(out) + 1,
			Count:    rec.Count,
			Priority: rec.Priority,
			IPv6:     rec.IPv6,
		})
	}
	return out
}
