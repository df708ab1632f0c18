package crawling

import (
	"testing"

	"github.com/jonathan/autoleech/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `
<html>
	<body>
		<nav>
			<a href="/index.php?/forums/forum/8-tamil/">Tamil</a>
		</nav>
		<main>
			<a href="/index.php?/forums/topic/101-leo-2023/">Leo (2023)</a>
			<a href="https://www.example.org/index.php?/forums/topic/102-jailer/">Jailer</a>
			<a href="/index.php?/forums/topic/101-leo-2023/">Leo again</a>
			<a href="/index.php?/forums/topic/103-vikram/#comments">Vikram</a>
			<a href="/index.php?/profile/7-admin/">admin</a>
			<a>no href</a>
		</main>
	</body>
</html>
`

func TestExtractTopicLinks_DedupPreservesOrder(t *testing.T) {
	links, err := ExtractTopicLinks(listingHTML, "https://www.example.org/", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.example.org/index.php?/forums/topic/101-leo-2023/",
		"https://www.example.org/index.php?/forums/topic/102-jailer/",
		"https://www.example.org/index.php?/forums/topic/103-vikram/",
	}, links)
}

func TestExtractTopicLinks_Limit(t *testing.T) {
	links, err := ExtractTopicLinks(listingHTML, "https://www.example.org/", 2)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Contains(t, links[1], "102-jailer")
}

func TestExtractTopicLinks_InvalidBaseURL(t *testing.T) {
	_, err := ExtractTopicLinks(listingHTML, "not-a-url", 0)
	require.Error(t, err)

	var extractErr *LinkExtractionError
	assert.ErrorAs(t, err, &extractErr)
	assert.Contains(t, err.Error(), "invalid base URL")
}

func TestExtractTopicLinks_NoTopics(t *testing.T) {
	links, err := ExtractTopicLinks(`<html><body><a href="/about">About</a></body></html>`, "https://www.example.org/", 15)
	require.NoError(t, err)
	assert.Empty(t, links)
}

const topicHTML = `
<html>
	<body>
		<div class="post">
			<a data-fileext="torrent" href="https://www.example.org/applications/core/interface/file/attachment.php?id=1">
				https://www.example.org/Leo (2023) Tamil TRUE WEB-DL - 1080p - 2.4GB.torrent
			</a>
			<a data-fileext="torrent" href="/applications/core/interface/file/attachment.php?id=2">Leo (2023) Tamil HQ HDRip - 700 MB.torrent</a>
			<a data-fileext="torrent">missing href</a>
			<a data-fileext="torrent" href="/attachment.php?id=3">Leo Sample.torrent</a>
			<a href="/attachment.php?id=4">not a torrent</a>
		</div>
	</body>
</html>
`

func TestExtractFiles(t *testing.T) {
	files, err := ExtractFiles(topicHTML, "https://www.example.org/index.php?/forums/topic/101-leo-2023/")
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, types.File{
		Kind:  types.FileKindTorrent,
		Title: "Leo (2023) Tamil TRUE WEB-DL - 1080p - 2.4GB",
		Link:  "https://www.example.org/applications/core/interface/file/attachment.php?id=1",
		Size:  "2.4GB",
	}, files[0])

	assert.Equal(t, "https://www.example.org/applications/core/interface/file/attachment.php?id=2", files[1].Link)
	assert.Equal(t, "700 MB", files[1].Size)
	assert.Equal(t, UnknownSize, files[2].Size)
	assert.Equal(t, "Leo Sample", files[2].Title)
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://www.1tamilmv.mba/Movie 1080p.torrent", "Movie 1080p"},
		{"  Movie.TORRENT ", "Movie"},
		{"Movie torrent", "Movie torrent"},
		{"Plain title", "Plain title"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanTitle(tt.raw), tt.raw)
	}
}

func TestExtractSize(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Movie - 1.4GB.torrent", "1.4GB"},
		{"Movie - 700 MB", "700 MB"},
		{"Movie - 512kb", "512kb"},
		{"Movie [2.1GB + 700MB]", "2.1GB"},
		{"Movie", UnknownSize},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractSize(tt.text), tt.text)
	}
}
