package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const showinfoSample = `Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'walkthrough.mov':
  Duration: 00:00:03.00, start: 0.000000, bitrate: 5112 kb/s
[Parsed_showinfo_2 @ 0x5591] n:   0 pts:      0 pts_time:0       duration:    512 fmt:yuvj420p
[Parsed_showinfo_2 @ 0x5591] n:   1 pts:   2560 pts_time:0.2     duration:    512 fmt:yuvj420p
[Parsed_showinfo_2 @ 0x5591] n:   2 pts:   5120 pts_time:0.4     duration:    512 fmt:yuvj420p
[Parsed_showinfo_2 @ 0x5591] n:   3 pts:   7733 pts_time:0.604141 duration:    512 fmt:yuvj420p
frame=    4 fps=0.0 q=2.0 size=       0kB time=00:00:00.60 bitrate=   0.6kbits/s
`

func TestBuildFilterCapsBothDimensions(t *testing.T) {
	filter := buildFilter(5, 1440)
	// Portrait capture is the common case for a phone walkthrough, so the
	// cap must bind the height as well as the width.
	assert.Contains(t, filter, "w='min(iw,1440)'")
	assert.Contains(t, filter, "h='min(ih,1440)'")
	assert.Contains(t, filter, "force_original_aspect_ratio=decrease")
	assert.Contains(t, filter, "force_divisible_by=2")
	assert.Contains(t, filter, "fps=5,")
	assert.Contains(t, filter, ",showinfo")
}

func TestParseFrameTimestamps(t *testing.T) {
	ts := ParseFrameTimestamps(showinfoSample)
	assert.Equal(t, []float64{0, 0.2, 0.4, 0.604141}, ts)
}

func TestParseFrameTimestampsIgnoresUnrelatedLines(t *testing.T) {
	diag := "frame=   15 fps=0.0 q=2.0 time=00:00:03.00\nsome pts_time:9.9 line without the filter tag\n"
	assert.Empty(t, ParseFrameTimestamps(diag))
}

func TestParseFrameTimestampsEmpty(t *testing.T) {
	assert.Empty(t, ParseFrameTimestamps(""))
}

func TestPadTimestampsShortfall(t *testing.T) {
	ts := PadTimestamps([]float64{0, 0.2}, 5, 5)
	assert.Equal(t, []float64{0, 0.2, 0.6, 0.8, 1.0}, ts)
}

func TestPadTimestampsExact(t *testing.T) {
	in := []float64{0, 0.2, 0.4}
	assert.Equal(t, in, PadTimestamps(in, 3, 5))
}

func TestPadTimestampsFromNothing(t *testing.T) {
	ts := PadTimestamps(nil, 3, 5)
	assert.Equal(t, []float64{0.2, 0.4, 0.6}, ts)
}

func TestPadTimestampsTruncatesSurplus(t *testing.T) {
	ts := PadTimestamps([]float64{0, 0.2, 0.4, 0.6}, 2, 5)
	assert.Equal(t, []float64{0, 0.2}, ts)
}
