package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iptv/internal/registry"
)

func rankedURIs(view []registry.Ranked) []string {
	out := make([]string, 0, len(view))
	for _, r := range view {
		out = append(out, r.URI)
	}
	return out
}

func TestRankedOrderAndTies(t *testing.T) {
	reg := registry.New(newCatalog(t, "CCTV1"), nil)
	for _, uri := range []string{
		"http://a/1",
		"http://[::1]/2",
		"http://b/3",
		"http://b/3",
		"http://c/4",
		"http://[::2]/5",
		"http://[::2]/5",
		"http://[::2]/5",
	} {
		merge(t, reg, "CCTV1", uri)
	}
	reg.Freeze()

	all := reg.Ranked("CCTV1", registry.RankOptions{})
	assert.Equal(t, []string{"http://[::2]/5", "http://b/3", "http://a/1", "http://[::1]/2", "http://c/4"}, rankedURIs(all))
	for i, r := range all {
		assert.Equal(t, i+1, r.Index)
	}

	top := reg.Ranked("CCTV1", registry.RankOptions{Limit: 2})
	assert.Equal(t, []string{"http://[::2]/5", "http://b/3"}, rankedURIs(top))

	v4 := reg.Ranked("CCTV1", registry.RankOptions{IPv4Only: true, Limit: 3})
	require.Len(t, v4, 3)
	assert.Equal(t, []string{"http://b/3", "http://a/1", "http://c/4"}, rankedURIs(v4))
	assert.Equal(t, []int{1, 2, 3}, []int{v4[0].Index, v4[1].Index, v4[2].Index})
}

func TestRankedBeforeFreezeMatchesAfter(t *testing.T) {
	reg := registry.New(newCatalog(t, "CCTV1"), nil)
	merge(t, reg, "CCTV1", "http://a/1")
	merge(t, reg, "CCTV1", "http://b/2")
	merge(t, reg, "CCTV1", "http://b/2")

	before := reg.Ranked("CCTV1", registry.RankOptions{})
	assert.Equal(t, "http://a/1", reg.Records("CCTV1")[0].URI, "records keep creation order until frozen")
	reg.Freeze()
	assert.Equal(t, before, reg.Ranked("CCTV1", registry.RankOptions{}))
	assert.Equal(t, "http://b/2", reg.Records("CCTV1")[0].URI)
}

func TestRankedEmptyChannel(t *testing.T) {
	reg := registry.New(newCatalog(t, "CCTV1"), nil)
	reg.Freeze()
	assert.Empty(t, reg.Ranked("CCTV1", registry.RankOptions{Limit: 10}))
}
