package monitor

import (
	"strconv"
	"testing"

	"github.com/jonathan/autoleech/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestDedupStore_MarkAndSeen(t *testing.T) {
	d := NewDedupStore(0)

	assert.False(t, d.SeenLink("L1"))
	assert.False(t, d.SeenTopic("T1"))

	d.MarkLink("L1")
	d.MarkTopic("T1")
	d.MarkLink("L1")

	assert.True(t, d.SeenLink("L1"))
	assert.True(t, d.SeenTopic("T1"))
	links, topics := d.Len()
	assert.Equal(t, 1, links)
	assert.Equal(t, 1, topics)
}

func TestDedupStore_NewFilesKeepsOrder(t *testing.T) {
	d := NewDedupStore(0)
	d.MarkLink("L2")

	got := d.NewFiles([]types.File{torrent("a", "L1"), torrent("b", "L2"), torrent("c", "L3")})
	assert.Equal(t, []string{"L1", "L3"}, linksOf(got))

	assert.Empty(t, d.NewFiles(nil))
}

func TestDedupStore_BoundedEvictsLeastRecentlySeen(t *testing.T) {
	d := NewDedupStore(2)
	d.MarkLink("L1")
	d.MarkLink("L2")

	// Touch L1 so L2 becomes the eviction candidate.
	assert.True(t, d.SeenLink("L1"))
	d.MarkLink("L3")

	assert.True(t, d.SeenLink("L1"))
	assert.False(t, d.SeenLink("L2"))
	assert.True(t, d.SeenLink("L3"))
	links, _ := d.Len()
	assert.Equal(t, 2, links)
}

func TestDedupStore_UnboundedNeverEvicts(t *testing.T) {
	d := NewDedupStore(0)
	for i := 0; i < 1000; i++ {
		d.MarkTopic("https://example.com/forums/topic/" + strconv.Itoa(i))
	}
	_, topics := d.Len()
	assert.Equal(t, 1000, topics)
}

func linksOf(files []types.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Link)
	}
	return out
}
