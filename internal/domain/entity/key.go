package entity

import "strings"

// ScanKey is a parsed input-object key. Input objects live under
// <root><scene...>/raw/<name>; derived objects are written under sibling
// prefixes of raw/, so every output key is a deterministic function of the
// input key and re-delivery simply overwrites.
type ScanKey struct {
	Key         string
	ScenePrefix string // key minus the trailing /raw/<name>
	RawPrefix   string // ScenePrefix + "/raw"
}

func (k ScanKey) FramesPrefix() string    { return k.ScenePrefix + "/frames" }
func (k ScanKey) ProcessedPrefix() string { return k.ScenePrefix + "/processed" }

// PoseLogKey is the optional sidecar pose log captured next to the video.
func (k ScanKey) PoseLogKey() string { return k.RawPrefix + "/arkit/poses.jsonl" }

// MatchVideoKey reports whether key is a finalized walkthrough video. Accepted
// shapes relative to the root prefix are <scene>/raw/<name> (legacy) and
// <scene>/<source>/<capture>/raw/<name>.
func MatchVideoKey(key, rootPrefix, videoName string) (ScanKey, bool) {
	suffix := "/raw/" + videoName
	if !strings.HasPrefix(key, rootPrefix) || !strings.HasSuffix(key, suffix) {
		return ScanKey{}, false
	}
	rel := strings.TrimPrefix(key, rootPrefix)
	if n := len(strings.Split(rel, "/")); n != 3 && n != 5 {
		return ScanKey{}, false
	}
	return splitScanKey(key, suffix), true
}

// MatchArchiveKey reports whether key is a finalized room-scan archive.
func MatchArchiveKey(key, rootPrefix, archiveName string) (ScanKey, bool) {
	suffix := "/raw/" + archiveName
	if !strings.HasPrefix(key, rootPrefix) || !strings.HasSuffix(key, suffix) {
		return ScanKey{}, false
	}
	return splitScanKey(key, suffix), true
}

func splitScanKey(key, suffix string) ScanKey {
	scene := strings.TrimSuffix(key, suffix)
	return ScanKey{
		Key:         key,
		ScenePrefix: scene,
		RawPrefix:   scene + "/raw",
	}
}
