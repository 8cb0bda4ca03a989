package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iptv/internal/registry"
)

func TestDiagnosticsKeepsUnknownChannels(t *testing.T) {
	reg := registry.New(newCatalog(t, "CCTV1"), nil)
	diag := registry.NewDiagnostics()

	observe := func(raw, resolved, source, uri string) {
		diag.Observe(raw, resolved, source, uri)
		_, _ = reg.Merge(resolved, uri)
	}
	observe("Mystery TV", "Mystery TV", "http://src/a.m3u", "http://m/1")
	observe("CCTV-1 HD", "CCTV1", "http://src/a.m3u", "http://c/1")
	observe("CCTV-1 HD", "CCTV1", "http://src/b.txt", "http://c/1")
	observe("CCTV-1 HD", "CCTV1", "http://src/b.txt", "http://[::1]/1")
	reg.Freeze()

	assert.Empty(t, reg.Ranked("Mystery TV", registry.RankOptions{}))
	assert.Equal(t, []string{"Mystery TV", "CCTV-1 HD"}, diag.Names())

	entry, ok := diag.Entry("CCTV-1 HD")
	require.True(t, ok)
	assert.Equal(t, []string{"CCTV1"}, entry.Resolved)
	assert.Equal(t, []string{"http://src/a.m3u", "http://src/b.txt"}, entry.Sources)
	assert.Equal(t, []string{"http://c/1", "http://[::1]/1"}, entry.URIs)

	ranked := diag.Ranked("CCTV-1 HD", registry.RankOptions{})
	require.Len(t, ranked, 2)
	assert.Equal(t, 2, ranked[0].Count)
	assert.Equal(t, 2, ranked[0].Priority)
	assert.True(t, ranked[1].IPv6)

	assert.Len(t, diag.Ranked("CCTV-1 HD", registry.RankOptions{IPv4Only: true}), 1)
	_, ok = diag.Entry("missing")
	assert.False(t, ok)
}

func TestNilDiagnostics(t *testing.T) {
	var diag *registry.Diagnostics
	diag.Observe("a", "a", "s", "http://x")
	assert.Nil(t, diag.Names())
	assert.Nil(t, diag.Ranked("a", registry.RankOptions{}))
}
