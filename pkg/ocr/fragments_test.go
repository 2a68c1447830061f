package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFragmentsPageWrapped(t *testing.T) {
	data := []byte(`[[
		[[[10,50],[40,50],[40,60],[10,60]], ["World", 0.91]],
		[[[10,10],[40,10],[40,20],[10,20]], ["Hello", 0.99]]
	]]`)
	frags, skipped, err := DecodeFragments(data)
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, frags, 2)
	assert.Equal(t, "World", frags[0].Text)
	assert.InDelta(t, 0.91, frags[0].Confidence, 1e-9)
	assert.Equal(t, Point{X: 10, Y: 50}, frags[0].Box[0])
	assert.Equal(t, "Hello\nWorld", AssembleText(frags))
}

func TestDecodeFragmentsFlatAndObjects(t *testing.T) {
	data := []byte(`[
		[[[0,0],[5,0],[5,5],[0,5]], ["flat"]],
		{"box": [[0,10],[5,10],[5,15],[0,15]], "text": "object", "confidence": 0.5}
	]`)
	frags, skipped, err := DecodeFragments(data)
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, "flat\nobject", AssembleText(frags))
}

func TestDecodeFragmentsSkipsBrokenEntries(t *testing.T) {
	data := []byte(`[
		[[[0,0],[5,0],[5,5],[0,5]], ["good", 0.9]],
		"garbage",
		[[[0,0]]],
		[[[1],[2]], ["bad point"]],
		{"box": [[0,0]]}
	]`)
	frags, skipped, err := DecodeFragments(data)
	require.NoError(t, err)
	assert.Equal(t, 4, skipped)
	require.Len(t, frags, 1)
	assert.Equal(t, "good", frags[0].Text)
}

func TestDecodeFragmentsNothingDetected(t *testing.T) {
	for _, in := range []string{`[]`, `[null]`, `[[]]`} {
		frags, skipped, err := DecodeFragments([]byte(in))
		require.NoError(t, err, in)
		assert.Empty(t, frags, in)
		assert.Zero(t, skipped, in)
	}
}

func TestDecodeFragmentsRejectsNonList(t *testing.T) {
	_, _, err := DecodeFragments([]byte(`{"error":"boom"}`))
	assert.Error(t, err)
}
