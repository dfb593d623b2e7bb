package safe

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type countingTracker struct {
	mu     sync.Mutex
	active map[uint64]string
}

func newCountingTracker() *countingTracker {
	return &countingTracker{active: make(map[uint64]string)}
}

func (c *countingTracker) TrackAllocation(id uint64, size int64, tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active[id] = tag
}

func (c *countingTracker) TrackDeallocation(id uint64, tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, id)
}

func (c *countingTracker) hasTag(tag string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.active {
		if t == tag {
			return true
		}
	}
	return false
}

func (c *countingTracker) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

func TestCloseIsIdempotent(t *testing.T) {
	tracker := newCountingTracker()
	m, err := NewMatWithTracker(4, 6, gocv.MatTypeCV8UC3, tracker, "frame")
	require.NoError(t, err)
	assert.Equal(t, 1, tracker.count())

	m.Close()
	m.Close()
	assert.False(t, m.IsValid())
	assert.Equal(t, 0, tracker.count())

	var nilMat *Mat
	nilMat.Close()
}

func TestDerivedMatsInheritTracker(t *testing.T) {
	tracker := newCountingTracker()
	src, err := NewMatWithTracker(4, 6, gocv.MatTypeCV8UC3, tracker, "capture")
	require.NoError(t, err)
	defer src.Close()

	clone, err := src.CloneAs("annotate")
	require.NoError(t, err)
	like, err := NewMatLike(src, 2, 2, gocv.MatTypeCV8UC3, "display")
	require.NoError(t, err)

	assert.Equal(t, 3, tracker.count())
	assert.True(t, tracker.hasTag("annotate"))
	assert.True(t, tracker.hasTag("display"))
	assert.NotSame(t, src, clone)

	clone.Close()
	like.Close()
	assert.Equal(t, 1, tracker.count())
}

func TestAdoptTakesOwnership(t *testing.T) {
	tracker := newCountingTracker()
	raw := gocv.NewMatWithSize(3, 5, gocv.MatTypeCV8UC3)

	m, err := Adopt(raw, tracker, "capture")
	require.NoError(t, err)
	assert.Equal(t, 3, m.Rows())
	assert.Equal(t, 5, m.Cols())
	assert.Equal(t, 3, m.Channels())
	assert.Equal(t, 1, tracker.count())

	m.Close()
	assert.Equal(t, 0, tracker.count())

	_, err = Adopt(gocv.NewMat(), tracker, "capture")
	assert.Error(t, err)
}

func TestClosedMatRejectsAccess(t *testing.T) {
	m, err := NewMat(2, 2, gocv.MatTypeCV8UC3)
	require.NoError(t, err)
	m.Close()

	_, err = m.GetUCharAt3(0, 0, 0)
	assert.Error(t, err)
	_, err = m.CloneAs("x")
	assert.Error(t, err)
	assert.Nil(t, m.ToBytes())
	assert.Error(t, ValidateFrame(m, "test"))
}

func TestValidateFrame(t *testing.T) {
	gray, err := NewMat(2, 2, gocv.MatTypeCV8UC1)
	require.NoError(t, err)
	defer gray.Close()
	assert.Error(t, ValidateFrame(gray, "test"))

	bgr, err := NewMat(2, 2, gocv.MatTypeCV8UC3)
	require.NoError(t, err)
	defer bgr.Close()
	assert.NoError(t, ValidateFrame(bgr, "test"))

	assert.Error(t, ValidateFrame(nil, "test"))
	assert.Error(t, ValidateDimensions(0, 10, "test"))
	assert.NoError(t, ValidateDimensions(640, 480, "test"))
}

func TestNewMatRejectsBadDimensions(t *testing.T) {
	_, err := NewMat(0, 4, gocv.MatTypeCV8UC3)
	assert.Error(t, err)

	_, err = NewMat(40000, 1, gocv.MatTypeCV8UC3)
	assert.Error(t, err, "larger than the allocation limit")
}
