package canon_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iptv/internal/canon"
)

func mustStep(t *testing.T, expr string) *regexp.Regexp {
	t.Helper()
	return regexp.MustCompile(expr)
}

func newCanonicalizer(t *testing.T, opts ...canon.Option) *canon.Canonicalizer {
	t.Helper()
	c, err := canon.New(opts...)
	require.NoError(t, err)
	return c
}

func TestCanonicalizeRuleFamilies(t *testing.T) {
	c := newCanonicalizer(t)

	tests := []struct {
		in   string
		want string
	}{
		{"CCTV-1 HD", "CCTV1"},
		{"CCTV1", "CCTV1"},
		{"  CCTV-1  ", "CCTV1"},
		{"CCTV-01", "CCTV1"},
		{"CCTV001综合", "CCTV1"},
		{"CCTV1 综合", "CCTV1"},
		{"CCTV5+ 体育赛事", "CCTV5+"},
		{"CCTV-4K", "CCTV4K"},
		{"CCTV13新闻", "CCTV13"},
		{"CETV-1", "CETV1"},
		{"CETV1高清", "CETV1"},
		{"NewTV 动作电影", "NewTV动作电影"},
		{"NewTV 动作电影 HD", "NewTV动作电影"},
		{"CHC 高清电影", "CHC高清电影"},
		{"湖南衛視", "湖南卫视"},
		{"翡翠臺", "翡翠台"},
		{"Discovery Channel", "Discovery Channel"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Canonicalize(tt.in))
		})
	}
}

type mapConverter map[string]string

func (m mapConverter) Convert(s string) (string, error) {
	for from, to := range m {
		s = strings.ReplaceAll(s, from, to)
	}
	return s, nil
}

func TestCanonicalizeSkipsKanaAndHangul(t *testing.T) {
	conv := mapConverter{"東": "东", "國": "国", "衛": "卫"}
	c := newCanonicalizer(t, canon.WithConverter(conv))

	assert.Equal(t, "テレビ東京", c.Canonicalize("テレビ東京"))
	assert.Equal(t, "韓國 한국", c.Canonicalize("韓國 한국"))
	assert.Equal(t, "东方卫视", c.Canonicalize("東方卫视"))
	assert.Equal(t, "CCTV卫视", c.Canonicalize("CCTV衛视 テレビ"))
}

func TestCanonicalizePreservesCornerBrackets(t *testing.T) {
	conv := mapConverter{"「": "“", "」": "”", "劇": "剧"}
	c := newCanonicalizer(t, canon.WithConverter(conv))

	assert.Equal(t, "「剧场」频道", c.Canonicalize("「劇场」频道"))
}

func TestCanonicalizeNFC(t *testing.T) {
	c := newCanonicalizer(t)
	assert.Equal(t, "Caf\u00e9 TV", c.Canonicalize("Cafe\u0301 TV"))
}

func TestTraceRecordsSteps(t *testing.T) {
	c := newCanonicalizer(t)
	tr := c.Trace("CCTV-01 综合")

	assert.Equal(t, canon.FamilyCCTV, tr.Family)
	assert.Equal(t, "CCTV", tr.Prefix)
	assert.Equal(t, "CCTV1", tr.Output)
	require.NotEmpty(t, tr.Steps)
	assert.Equal(t, "nfc", tr.Steps[0].Stage)
	assert.Equal(t, "CCTV:drop-dash", tr.Steps[2].Stage)
	assert.Equal(t, "CCTV01 综合", tr.Steps[2].Output)

	plain := c.Trace("Discovery")
	assert.Equal(t, canon.FamilyNone, plain.Family)
	assert.Equal(t, "none", plain.Family.String())
}

func TestWithRulesFirstMatchWins(t *testing.T) {
	rules := []canon.Rule{
		{Prefix: "AB", Family: canon.FamilyBrand, Steps: []canon.Step{{Pattern: mustStep(t, "B"), Replacement: "b"}}},
		{Prefix: "A", Family: canon.FamilyBrand, Steps: []canon.Step{{Pattern: mustStep(t, "A"), Replacement: "a"}}},
	}
	c := newCanonicalizer(t, canon.WithRules(rules), canon.WithConverter(mapConverter{}))

	assert.Equal(t, "Abc", c.Canonicalize("ABc"))
	assert.Equal(t, "aXc", c.Canonicalize("AXc"))
}

func TestStepLimit(t *testing.T) {
	step := canon.Step{Pattern: mustStep(t, `-`), Replacement: "", Limit: 1}
	assert.Equal(t, "ab-c", step.Apply("a-b-c"))
	step.Limit = 0
	assert.Equal(t, "abc", step.Apply("a-b-c"))
}

func TestCanonicalizeIdempotent(t *testing.T) {
	c := newCanonicalizer(t)
	fragments := []string{
		"CCTV", "CETV", "NewTV", "CHC", "-", " ", "0", "1", "5", "+", "K", "HD",
		"综合", "衛視", "電影", "「", "」", "台", "新聞", "テレビ", "\t", "8",
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("canonicalize is idempotent", prop.ForAll(
		func(idx []int) bool {
			var b strings.Builder
			for _, i := range idx {
				b.WriteString(fragments[i])
			}
			once := c.Canonicalize(b.String())
			return c.Canonicalize(once) == once
		},
		gen.SliceOf(gen.IntRange(0, len(fragments)-1)),
	))

	properties.TestingRun(t)
}
