package canon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"iptv/internal/canon"
)

func TestDefaultRulesOrder(t *testing.T) {
	rules := canon.DefaultRules()
	var prefixes []string
	for _, r := range rules {
		prefixes = append(prefixes, r.Prefix)
	}
	assert.Equal(t, []string{"CCTV", "CETV", "NewTV", "CHC"}, prefixes)
	assert.True(t, rules[0].Matches("CCTV-1"))
	assert.False(t, rules[0].Matches("cctv1"))
}
