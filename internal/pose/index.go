package pose

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"sort"

	"go.uber.org/zap"
)

// Entry is one device-pose sample from the sidecar log. Fields beyond these
// three are passed through the decoder untouched and dropped.
type Entry struct {
	FrameID      string          `json:"frame_id"`
	TDeviceSec   *float64        `json:"t_device_sec"`
	TWorldCamera json.RawMessage `json:"T_world_camera"`
}

// Index holds the two lookup structures built from a pose log: an exact map
// keyed by frame_id and a time-ascending slice of entries that carry a
// numeric timestamp. The slice is stable-sorted so equal timestamps keep
// their source order.
type Index struct {
	byFrameID map[string]Entry
	byTime    []Entry
}

// BuildIndex parses a newline-delimited pose log. Malformed lines are skipped
// with a warning; they never fail the build. A bufio.Reader is used instead of
// a Scanner so a line longer than the Scanner token cap cannot abort the whole
// log.
func BuildIndex(r io.Reader, log *zap.Logger) (*Index, error) {
	idx := &Index{byFrameID: make(map[string]Entry)}

	br := bufio.NewReader(r)
	lineNo := 0
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			line = bytes.TrimRight(line, "\r\n")
			if len(line) > 0 {
				var e Entry
				if uerr := json.Unmarshal(line, &e); uerr != nil {
					log.Warn("skipping malformed pose log line",
						zap.Int("line", lineNo),
						zap.Error(uerr),
					)
				} else {
					if e.FrameID != "" {
						idx.byFrameID[e.FrameID] = e
					}
					if e.TDeviceSec != nil {
						idx.byTime = append(idx.byTime, e)
					}
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(idx.byTime, func(i, j int) bool {
		return *idx.byTime[i].TDeviceSec < *idx.byTime[j].TDeviceSec
	})
	return idx, nil
}

// Empty returns an index with no entries, used when the pose log is absent.
func Empty() *Index {
	return &Index{byFrameID: make(map[string]Entry)}
}

func (ix *Index) Len() int { return len(ix.byFrameID) + len(ix.byTime) }

// ByFrameID looks up a pose by exact frame identifier.
func (ix *Index) ByFrameID(id string) (Entry, bool) {
	e, ok := ix.byFrameID[id]
	return e, ok
}

// NearestByTime returns the timestamped entry closest to t and the absolute
// time delta. On an exact tie between neighbors the earlier entry wins.
func (ix *Index) NearestByTime(t float64) (Entry, float64, bool) {
	if len(ix.byTime) == 0 {
		return Entry{}, 0, false
	}
	i := sort.Search(len(ix.byTime), func(k int) bool {
		return *ix.byTime[k].TDeviceSec >= t
	})

	// Compare the insertion-point candidate against its predecessor.
	switch i {
	case 0:
		return ix.byTime[0], abs(*ix.byTime[0].TDeviceSec - t), true
	case len(ix.byTime):
		last := ix.byTime[len(ix.byTime)-1]
		return last, abs(*last.TDeviceSec - t), true
	}

	prev, cur := ix.byTime[i-1], ix.byTime[i]
	dPrev, dCur := abs(*prev.TDeviceSec-t), abs(*cur.TDeviceSec-t)
	if dPrev <= dCur {
		return prev, dPrev, true
	}
	return cur, dCur, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
