package ingest

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitIntoChunks(t *testing.T) {
	assert.Nil(t, SplitIntoChunks("  \n ", 10))
	assert.Equal(t, []string{"short"}, SplitIntoChunks(" short ", 10))

	chunks := SplitIntoChunks("aaaa\nbbbb\ncccc", 10)
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, chunks)

	long := strings.Repeat("x", 25)
	chunks = SplitIntoChunks(long+"\n"+long, 10)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 10)
	}
	assert.Equal(t, long+long, strings.Join(chunks, ""))
}

func TestSplitIntoChunksKeepsRunes(t *testing.T) {
	line := strings.Repeat("é", 10) // 20 bytes
	for _, c := range SplitIntoChunks(line+"\n"+line, 7) {
		assert.True(t, len(c) <= 7)
		assert.Equal(t, c, SanitizeUTF8(c))
	}
}

func TestDocuments(t *testing.T) {
	src := Source{Seller: "circulx_seller_profile_1", Title: "lamp", Ref: "catalog/lamp.md"}
	docs := Documents(src, strings.Repeat("Warm desk lamp with brass finish.\n", 100))

	require.Greater(t, len(docs), 1)
	assert.Equal(t, "circulx_seller_profile_1:catalog/lamp.md#0", docs[0].ID)
	assert.Equal(t, "circulx_seller_profile_1", docs[0].Metadata["seller_name"])
	assert.Equal(t, "lamp (part 1)", docs[0].Metadata["title"])
	assert.Equal(t, "catalog/lamp.md", docs[0].Metadata["source"])
	assert.NotEmpty(t, docs[0].Metadata["lang"])

	again := Documents(src, strings.Repeat("Warm desk lamp with brass finish.\n", 100))
	assert.Equal(t, docs[1].ID, again[1].ID)

	assert.Empty(t, Documents(src, ""))
}

func TestDetectLang(t *testing.T) {
	en := "This comfortable running shoe is made from recycled materials. " +
		"It is available in several colours and ships worldwide within two business days. " +
		"The outer sole is designed for both road and trail running."
	assert.Equal(t, "en", DetectLang(en))
	assert.Equal(t, "und", DetectLang("42"))
}

func TestExtractMainText(t *testing.T) {
	page := `<html><head><style>.a{}</style><script>var x = 1;</script></head>
	<body><h1>Red Shoes</h1><p>Size 42, leather.</p><noscript>enable js</noscript></body></html>`

	assert.Equal(t, "Red Shoes\nSize 42, leather.", ExtractMainText(page))
}

func TestExtractLinks(t *testing.T) {
	base, _ := url.Parse("https://shop.example/catalog/")
	page := `<a href="shoes.html">s</a><a href="/catalog/shoes.html#top">dup</a>
	<a href="https://other.example/x">ext</a><a href="#frag">f</a><a href="img/logo.png">i</a>
	<a href="/catalog/bags?page=2">b</a>`

	assert.Equal(t, []string{
		"https://shop.example/catalog/shoes.html",
		"https://shop.example/catalog/bags",
	}, ExtractLinks(page, base))
}

func TestTitles(t *testing.T) {
	assert.Equal(t, "red running shoes", FilenameToTitle("/data/red-running_shoes.md"))

	base, _ := url.Parse("https://shop.example/catalog")
	assert.Equal(t, "Overview", URLToTitle("https://shop.example/catalog/", base))
	assert.Equal(t, "leather bags", URLToTitle("https://shop.example/catalog/leather-bags.html", base))
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "ok", SanitizeUTF8("o\xffk"))
	assert.Equal(t, "héllo", SanitizeUTF8("héllo"))
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("  hello\n"), 0o644))
	page := filepath.Join(dir, "p.html")
	require.NoError(t, os.WriteFile(page, []byte("<p>Hi there</p>"), 0o644))

	got, err := ExtractFile(txt)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	got, err = ExtractFile(page)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", got)

	assert.True(t, IsSupported("a/B.PDF"))
	assert.False(t, IsSupported("a/b.docx"))
}
