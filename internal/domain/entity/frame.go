package entity

import "encoding/json"

// ARKitPose is the optional pose attachment on a manifest line. Exactly one of
// the two match shapes is populated: a frame_id match carries PoseFrameID (and
// the defensive mismatch flag), a time match carries TDeviceSec and DeltaSec.
type ARKitPose struct {
	PoseFrameID     string          `json:"pose_frame_id,omitempty"`
	FrameIDMismatch bool            `json:"frame_id_mismatch,omitempty"`
	TWorldCamera    json.RawMessage `json:"T_world_camera,omitempty"`
	TDeviceSec      *float64        `json:"t_device_sec,omitempty"`
	DeltaSec        *float64        `json:"delta_sec,omitempty"`
	MatchType       string          `json:"match_type"`
}

const (
	MatchTypeFrameID = "frame_id"
	MatchTypeTime    = "time"
)

// FrameIndexEntry is one line of the frames/index.jsonl manifest.
type FrameIndexEntry struct {
	FrameID   string     `json:"frame_id"`
	TVideoSec float64    `json:"t_video_sec"`
	ARKitPose *ARKitPose `json:"arkit_pose,omitempty"`
}
