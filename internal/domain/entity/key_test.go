package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchVideoKeyLegacyShape(t *testing.T) {
	k, ok := MatchVideoKey("scans/house1/raw/walkthrough.mov", "scans/", "walkthrough.mov")
	require.True(t, ok)
	assert.Equal(t, "scans/house1", k.ScenePrefix)
	assert.Equal(t, "scans/house1/raw", k.RawPrefix)
	assert.Equal(t, "scans/house1/frames", k.FramesPrefix())
	assert.Equal(t, "scans/house1/raw/arkit/poses.jsonl", k.PoseLogKey())
}

func TestMatchVideoKeyNestedShape(t *testing.T) {
	k, ok := MatchVideoKey("scans/house1/ios/cap42/raw/walkthrough.mov", "scans/", "walkthrough.mov")
	require.True(t, ok)
	assert.Equal(t, "scans/house1/ios/cap42", k.ScenePrefix)
	assert.Equal(t, "scans/house1/ios/cap42/processed", k.ProcessedPrefix())
}

func TestMatchVideoKeyRejects(t *testing.T) {
	cases := []string{
		"other/house1/raw/walkthrough.mov",        // wrong root
		"scans/house1/raw/other.mov",              // wrong name
		"scans/house1/walkthrough.mov",            // not under raw/
		"scans/house1/a/raw/walkthrough.mov",      // 4 segments relative
		"scans/a/b/c/d/raw/walkthrough.mov",       // 6 segments relative
		"scans/house1/raw/walkthrough.mov.backup", // suffix mismatch
	}
	for _, key := range cases {
		_, ok := MatchVideoKey(key, "scans/", "walkthrough.mov")
		assert.False(t, ok, "key %s must not match", key)
	}
}

func TestMatchArchiveKey(t *testing.T) {
	k, ok := MatchArchiveKey("scans/house1/raw/roomplan.zip", "scans/", "roomplan.zip")
	require.True(t, ok)
	assert.Equal(t, "scans/house1/processed", k.ProcessedPrefix())

	_, ok = MatchArchiveKey("scans/house1/raw/walkthrough.mov", "scans/", "roomplan.zip")
	assert.False(t, ok)
}

func TestParseBucketNotification(t *testing.T) {
	body := `{
		"EventName": "s3:ObjectCreated:Put",
		"Key": "scans/scans/house1/raw/walkthrough.mov",
		"Records": [{
			"eventName": "s3:ObjectCreated:Put",
			"s3": {
				"bucket": {"name": "scans"},
				"object": {"key": "scans%2Fhouse1%2Fraw%2Fwalkthrough.mov", "size": 1024}
			}
		}]
	}`

	events, err := ParseBucketNotification([]byte(body))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "scans", events[0].Bucket)
	assert.Equal(t, "scans/house1/raw/walkthrough.mov", events[0].Key)
	assert.Equal(t, int64(1024), events[0].Size)
}

func TestParseBucketNotificationRejectsGarbage(t *testing.T) {
	_, err := ParseBucketNotification([]byte(`{invalid`))
	assert.Error(t, err)

	_, err = ParseBucketNotification([]byte(`{"Records": []}`))
	assert.Error(t, err)
}
