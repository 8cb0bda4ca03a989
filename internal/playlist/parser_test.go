package playlist_test

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iptv/internal/playlist"
)

func parse(t *testing.T, doc string, hint playlist.Format) ([]playlist.Entry, playlist.Format) {
	t.Helper()
	entries, format, err := playlist.Parse(strings.NewReader(doc), hint, nil)
	require.NoError(t, err)
	return entries, format
}

func TestParseM3U(t *testing.T) {
	doc := `#EXTM3U x-tvg-url="http://epg/e.xml"
#EXTINF:-1 tvg-id="1" group-title="央视",CCTV-1 HD
http://a.example/cctv1.m3u8$line 1
#EXTVLCOPT:http-user-agent=foo
#EXTINF:-1 group-title="卫视" , 湖南卫视
http://b.example/hunan
`
	entries, format := parse(t, doc, playlist.FormatAuto)

	assert.Equal(t, playlist.FormatM3U, format)
	// The second #EXTINF has a space before the comma and does not match.
	assert.Equal(t, []playlist.Entry{
		{Category: "央视", Name: "CCTV-1 HD", URI: "http://a.example/cctv1.m3u8"},
	}, entries)
}

func TestParseM3UPendingState(t *testing.T) {
	doc := `#EXTM3U
#EXTINF:-1 group-title="a",One
http://one
http://orphan
#EXTINF:-1 tvg-name="Two",Two
http://two
#EXTINF:-1 group-title="a",Three
#EXTINF:-1 group-title="b",Four
http://four
#EXTINF:-1 group-title="b",Five
`
	entries, _ := parse(t, doc, playlist.FormatAuto)

	assert.Equal(t, []playlist.Entry{
		{Category: "a", Name: "One", URI: "http://one"},
		{Category: "b", Name: "Four", URI: "http://four"},
	}, entries)
}

func TestParseTXT(t *testing.T) {
	doc := "\ufeffLoose,http://loose\r\n" +
		"Another,http://another\r\n" +
		"央视频道,#genre#\r\n" +
		"CCTV1,http://a/1$备注\r\n" +
		"broken line\r\n" +
		",http://nameless\r\n" +
		"Empty,\r\n" +
		"\r\n" +
		"卫视频道,#genre#\r\n" +
		"湖南卫视,http://b/hn,extra\r\n"

	p := playlist.NewParser(strings.NewReader(doc), playlist.FormatAuto, nil)
	var entries []playlist.Entry
	for e := range p.All() {
		entries = append(entries, e)
	}
	require.NoError(t, p.Err())

	assert.Equal(t, playlist.FormatTXT, p.Format())
	assert.Equal(t, []playlist.Entry{
		{Category: "央视频道", Name: "CCTV1", URI: "http://a/1"},
		{Category: "卫视频道", Name: "湖南卫视", URI: "http://b/hn,extra"},
	}, entries)
	assert.Equal(t, 3, p.Skipped())
}

func TestDetectionWindow(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 15; i++ {
		b.WriteString("# comment\n\n")
	}
	b.WriteString("#EXTINF:-1 group-title=\"a\",Late\nhttp://late\n")
	_, format := parse(t, b.String(), playlist.FormatAuto)
	assert.Equal(t, playlist.FormatTXT, format)

	b.Reset()
	for i := 0; i < 14; i++ {
		b.WriteString("# comment\n\n\n")
	}
	b.WriteString("#EXTINF:-1 group-title=\"a\",Late\nhttp://late\n")
	entries, format := parse(t, b.String(), playlist.FormatAuto)
	assert.Equal(t, playlist.FormatM3U, format)
	assert.Equal(t, []playlist.Entry{{Category: "a", Name: "Late", URI: "http://late"}}, entries)
}

func TestHintSkipsDetection(t *testing.T) {
	doc := "#EXTINF:-1 group-title=\"a\",One\nhttp://one\n"
	entries, format := parse(t, doc, playlist.FormatTXT)
	assert.Equal(t, playlist.FormatTXT, format)
	assert.Empty(t, entries)

	entries, format = parse(t, "\ufeff"+doc, playlist.FormatM3U)
	assert.Equal(t, playlist.FormatM3U, format)
	assert.Len(t, entries, 1)
}

func TestEmptyInput(t *testing.T) {
	entries, format := parse(t, "", playlist.FormatAuto)
	assert.Empty(t, entries)
	assert.Equal(t, playlist.FormatTXT, format)
}

func TestEarlyBreakAndSinglePass(t *testing.T) {
	doc := "c,#genre#\na,http://a\nb,http://b\n"
	p := playlist.NewParser(strings.NewReader(doc), playlist.FormatAuto, nil)
	for e := range p.All() {
		assert.Equal(t, "a", e.Name)
		break
	}
	count := 0
	for range p.All() {
		count++
	}
	assert.Zero(t, count)
}

func TestReadError(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := playlist.Parse(iotest.ErrReader(boom), playlist.FormatAuto, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestParseFormat(t *testing.T) {
	f, err := playlist.ParseFormat("M3U")
	require.NoError(t, err)
	assert.Equal(t, playlist.FormatM3U, f)
	_, err = playlist.ParseFormat("xml")
	assert.Error(t, err)
}

func TestCleanURI(t *testing.T) {
	assert.Equal(t, "http://x/y", playlist.CleanURI("  http://x/y$IPv4『线路1』 "))
	assert.Equal(t, "", playlist.CleanURI("$only"))
}
