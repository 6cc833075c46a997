package crawling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLinks_HomepageWithNav(t *testing.T) {
	html := `
		<html>
			<body>
				<nav>
					<a href="/about">About</a>
					<a href="/careers">Careers</a>
				</nav>
				<main>
					<a href="/blog">Blog</a>
					<a href="https://other.com/external">External</a>
					<a href="/api/status">Status API</a>
					<img src="/static/logo.png">
				</main>
			</body>
		</html>
	`

	links, err := ExtractLinks(html, "https://example.com")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com/about",
		"https://example.com/careers",
		"https://example.com/blog",
	}, links.Internal)
	assert.Equal(t, []string{"https://other.com/external"}, links.External)
	assert.Equal(t, []string{"https://example.com/api/status"}, links.API)
	assert.Equal(t, []string{"https://example.com/static/logo.png"}, links.Images)
}

func TestExtractLinks_SetsAreDisjoint(t *testing.T) {
	html := `
		<a href="/a">A</a>
		<a href="https://x.org/b">B</a>
		<a href="/data.json">C</a>
		<a href="https://x.org/v1/feed">D</a>
	`

	links, err := ExtractLinks(html, "https://example.com")
	require.NoError(t, err)

	all := map[string]int{}
	for _, group := range [][]string{links.Internal, links.External, links.API} {
		for _, l := range group {
			all[l]++
		}
	}
	for l, n := range all {
		assert.Equal(t, 1, n, "link %s appears in more than one category", l)
	}
	assert.Len(t, links.API, 2)
}

func TestExtractLinks_NormalizesRelativeURLs(t *testing.T) {
	html := `
		<html>
			<body>
				<a href="/relative">Relative</a>
				<a href="relative2">Relative No Slash</a>
				<a href="../parent">Parent</a>
			</body>
		</html>
	`

	links, err := ExtractLinks(html, "https://example.com/path/to/page")
	require.NoError(t, err)
	assert.Len(t, links.Internal, 3)
	assert.Contains(t, links.Internal, "https://example.com/relative")
	assert.Contains(t, links.Internal, "https://example.com/path/to/relative2")
	assert.Contains(t, links.Internal, "https://example.com/path/parent")
}

func TestExtractLinks_RemovesDuplicatesAndFragments(t *testing.T) {
	html := `
		<a href="/duplicate">Duplicate 1</a>
		<a href="/duplicate">Duplicate 2</a>
		<a href="/duplicate/">Duplicate 3 (trailing slash)</a>
		<a href="/duplicate#section">Duplicate 4 (fragment)</a>
	`

	links, err := ExtractLinks(html, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/duplicate"}, links.Internal)
}

func TestExtractLinks_SkipsNonHTTPAndDownloads(t *testing.T) {
	html := `
		<a href="mailto:hi@example.com">Mail</a>
		<a href="javascript:void(0)">JS</a>
		<a href="tel:+15555555555">Call</a>
		<a href="/brochure.pdf">PDF</a>
		<a href="/ok">OK</a>
		<img src="/not-an-image">
		<img src="data:image/png;base64,AAAA">
	`

	links, err := ExtractLinks(html, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/ok"}, links.Internal)
	assert.Empty(t, links.External)
	assert.Empty(t, links.Images)
}

func TestExtractLinks_InvalidBaseURL(t *testing.T) {
	html := `<html><body><a href="/link">Link</a></body></html>`

	_, err := ExtractLinks(html, "not-a-valid-url")
	assert.Error(t, err)
	var linkErr *LinkExtractionError
	assert.ErrorAs(t, err, &linkErr)
	assert.Equal(t, "not-a-valid-url", linkErr.BaseURL)
}

func TestExtractLinks_EmptyHTML(t *testing.T) {
	links, err := ExtractLinks("", "https://example.com")
	require.NoError(t, err)
	assert.Empty(t, links.Internal)
	assert.NotNil(t, links.Internal)
}

func TestExtractLinks_MalformedLinks(t *testing.T) {
	html := `
		<a href="valid">Valid</a>
		<a href="://invalid">Invalid</a>
		<a>No href</a>
	`

	links, err := ExtractLinks(html, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/valid"}, links.Internal)
}

func TestNormalizeRawURL(t *testing.T) {
	assert.Equal(t, "https://example.com", NormalizeRawURL("https://Example.COM/"))
	assert.Equal(t, "https://example.com/a", NormalizeRawURL("HTTPS://example.com/a/#top"))
	assert.Equal(t, "https://example.com/a?b=1", NormalizeRawURL("https://example.com/a?b=1"))
}
