package registry_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iptv/internal/catalog"
	"iptv/internal/policy"
	"iptv/internal/registry"
)

func newCatalog(t *testing.T, names ...string) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse(strings.NewReader("CATE:test\n" + strings.Join(names, "\n")))
	require.NoError(t, err)
	return cat
}

func merge(t *testing.T, reg *registry.Registry, name, uri string) registry.Outcome {
	t.Helper()
	outcome, err := reg.Merge(name, uri)
	require.NoError(t, err)
	return outcome
}

func TestMergeDefaultPortsCollapse(t *testing.T) {
	reg := registry.New(newCatalog(t, "CCTV1"), nil)

	assert.Equal(t, registry.OutcomeCreated, merge(t, reg, "CCTV1", "http://host:80/a"))
	assert.Equal(t, registry.OutcomeUpdated, merge(t, reg, "CCTV1", "http://host/a"))
	assert.Equal(t, registry.OutcomeCreated, merge(t, reg, "CCTV1", "https://host:443/a"))
	assert.Equal(t, registry.OutcomeUpdated, merge(t, reg, "CCTV1", "https://host/a"))
	assert.Equal(t, registry.OutcomeCreated, merge(t, reg, "CCTV1", "http://[::1]:80/a"))

	records := reg.Records("CCTV1")
	require.Len(t, records, 3)
	assert.Equal(t, "http://host/a", records[0].URI)
	assert.Equal(t, 2, records[0].Count)
	assert.Equal(t, "https://host/a", records[1].URI)
	assert.Equal(t, 2, records[1].Count)
	assert.Equal(t, "http://[::1]:80/a", records[2].URI)
	assert.True(t, records[2].IPv6)
}

func TestMergeUnknownChannel(t *testing.T) {
	reg := registry.New(newCatalog(t, "CCTV1"), nil)
	assert.Equal(t, registry.OutcomeUnknownChannel, merge(t, reg, "CCTV99", "http://x/a"))
	assert.False(t, reg.Has("CCTV99"))
	assert.Nil(t, reg.Ranked("CCTV99", registry.RankOptions{}))
	assert.Equal(t, 1, reg.Stats().Unknown)
}

func TestMergeInvalidURI(t *testing.T) {
	reg := registry.New(newCatalog(t, "CCTV1"), nil)
	outcome, err := reg.Merge("CCTV1", "not-a-uri")
	assert.Equal(t, registry.OutcomeInvalidURI, outcome)
	assert.ErrorIs(t, err, registry.ErrInvalidURI)
	assert.Empty(t, reg.Records("CCTV1"))
}

func TestMergeDenyOnFirstObservation(t *testing.T) {
	filter := policy.New([]string{"blocked.example"}, nil, 0)
	reg := registry.New(newCatalog(t, "CCTV1"), filter)

	assert.Equal(t, registry.OutcomeDenied, merge(t, reg, "CCTV1", "http://blocked.example/a"))
	assert.Empty(t, reg.Records("CCTV1"))
	assert.Equal(t, 1, reg.Stats().Denied)
}

func TestMergeKeepsMalformedPathEscapes(t *testing.T) {
	reg := registry.New(newCatalog(t, "CCTV1"), nil)

	assert.Equal(t, registry.OutcomeCreated, merge(t, reg, "CCTV1", "http://host:80/live/%zz.m3u8"))
	assert.Equal(t, registry.OutcomeUpdated, merge(t, reg, "CCTV1", "http://host/live/%zz.m3u8"))
	records := reg.Records("CCTV1")
	require.Len(t, records, 1)
	assert.Equal(t, "http://host/live/%zz.m3u8", records[0].URI)
	assert.Zero(t, reg.Stats().Invalid)
}

func TestMergeDenyMatchesObservedSpelling(t *testing.T) {
	filter := policy.New([]string{"host:80"}, nil, 0)
	reg := registry.New(newCatalog(t, "CCTV1"), filter)

	assert.Equal(t, registry.OutcomeCreated, merge(t, reg, "CCTV1", "http://host/a"))
	assert.Equal(t, registry.OutcomeDenied, merge(t, reg, "CCTV1", "http://host:80/a"))
	records := reg.Records("CCTV1")
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Count)
}

func TestMergeAllowBonusIsNotAccumulated(t *testing.T) {
	filter := policy.New(nil, []string{"cdn.good"}, 100)
	reg := registry.New(newCatalog(t, "CCTV1"), filter)

	for range 5 {
		merge(t, reg, "CCTV1", "http://cdn.good/a")
	}
	records := reg.Records("CCTV1")
	require.Len(t, records, 1)
	assert.Equal(t, 5, records[0].Count)
	assert.Equal(t, 105, records[0].Priority)
}

func TestMergeLastBonusWins(t *testing.T) {
	// ":80/" only appears in the observed form, so only those tuples earn the bonus.
	filter := policy.New(nil, []string{":80/"}, 100)

	t.Run("allowed observation merged last", func(t *testing.T) {
		reg := registry.New(newCatalog(t, "CCTV1"), filter)
		merge(t, reg, "CCTV1", "http://host/a")
		merge(t, reg, "CCTV1", "http://host/a")
		merge(t, reg, "CCTV1", "http://host:80/a")
		rec := reg.Records("CCTV1")[0]
		assert.Equal(t, 3, rec.Count)
		assert.Equal(t, 103, rec.Priority)
	})

	t.Run("plain observation merged last", func(t *testing.T) {
		reg := registry.New(newCatalog(t, "CCTV1"), filter)
		merge(t, reg, "CCTV1", "http://host:80/a")
		merge(t, reg, "CCTV1", "http://host/a")
		merge(t, reg, "CCTV1", "http://host/a")
		rec := reg.Records("CCTV1")[0]
		assert.Equal(t, 3, rec.Count)
		assert.Equal(t, 3, rec.Priority)
	})

	t.Run("allowed observation first creates with bonus", func(t *testing.T) {
		reg := registry.New(newCatalog(t, "CCTV1"), filter)
		merge(t, reg, "CCTV1", "http://host:80/a")
		rec := reg.Records("CCTV1")[0]
		assert.Equal(t, 1, rec.Count)
		assert.Equal(t, 101, rec.Priority)
	})
}

func TestMergeAfterFreeze(t *testing.T) {
	reg := registry.New(newCatalog(t, "CCTV1"), nil)
	reg.Freeze()
	assert.True(t, reg.Frozen())
	_, err := reg.Merge("CCTV1", "http://x/a")
	assert.ErrorIs(t, err, registry.ErrFrozen)
}

func TestRemovedChannelKeepsEntry(t *testing.T) {
	cat, err := catalog.Parse(strings.NewReader("CATE:a\nCCTV1\n-CCTV1\n"))
	require.NoError(t, err)
	reg := registry.New(cat, nil)
	assert.Equal(t, registry.OutcomeCreated, merge(t, reg, "CCTV1", "http://x/a"))
	total, populated := reg.Channels()
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, populated)
}

func TestMergeCountIsOrderIndependent(t *testing.T) {
	names := []string{"A", "B"}
	uris := []string{"http://h/1", "http://h:80/1", "http://h/2", "https://h:443/3", "http://[::1]/4"}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("final counts depend only on the multiset of tuples", prop.ForAll(
		func(picks []int, rotation int) bool {
			type tuple struct{ name, uri string }
			tuples := make([]tuple, 0, len(picks))
			for _, p := range picks {
				tuples = append(tuples, tuple{names[p%len(names)], uris[p%len(uris)]})
			}
			cat := newCatalog(t, names...)

			counts := func(order []tuple) map[string]int {
				reg := registry.New(cat, nil)
				for _, tp := range order {
					if _, err := reg.Merge(tp.name, tp.uri); err != nil {
						return nil
					}
				}
				out := map[string]int{}
				for _, n := range names {
					for _, rec := range reg.Records(n) {
						out[fmt.Sprintf("%s|%s", n, rec.URI)] = rec.Count
					}
				}
				return out
			}

			forward := counts(tuples)
			reversed := make([]tuple, len(tuples))
			for i, tp := range tuples {
				reversed[len(tuples)-1-i] = tp
			}
			rotated := tuples
			if len(tuples) > 0 {
				k := rotation % len(tuples)
				rotated = append(append([]tuple(nil), tuples[k:]...), tuples[:k]...)
			}
			return assert.ObjectsAreEqual(forward, counts(reversed)) &&
				assert.ObjectsAreEqual(forward, counts(rotated))
		},
		gen.SliceOf(gen.IntRange(0, 9)),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}
