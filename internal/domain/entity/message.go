package entity

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// BucketNotification is the inbound MinIO bucket-notification envelope delivered
// over the scan.events queue. Only the fields the dispatcher reads are declared;
// everything else in the event payload is ignored.
type BucketNotification struct {
	EventName string               `json:"EventName"`
	Key       string               `json:"Key"`
	Records   []NotificationRecord `json:"Records"`
}

type NotificationRecord struct {
	EventName string `json:"eventName"`
	S3        struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key  string `json:"key"`
			Size int64  `json:"size"`
		} `json:"object"`
	} `json:"s3"`
}

// ObjectEvent is one finalized-object event after envelope parsing.
type ObjectEvent struct {
	Bucket string
	Key    string
	Size   int64
}

// ParseBucketNotification decodes a notification body into individual object
// events. Object keys arrive URL-encoded in S3-style records.
func ParseBucketNotification(body []byte) ([]ObjectEvent, error) {
	var n BucketNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("unmarshal notification: %w", err)
	}
	if len(n.Records) == 0 {
		return nil, fmt.Errorf("notification has no records")
	}

	events := make([]ObjectEvent, 0, len(n.Records))
	for _, rec := range n.Records {
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("unescape object key %q: %w", rec.S3.Object.Key, err)
		}
		events = append(events, ObjectEvent{
			Bucket: rec.S3.Bucket.Name,
			Key:    key,
			Size:   rec.S3.Object.Size,
		})
	}
	return events, nil
}

// ScanStatusMessage is the outbound message published to the scan.status queue
// on every terminal job transition.
type ScanStatusMessage struct {
	JobID        uuid.UUID `json:"job_id"`
	Pipeline     Pipeline  `json:"pipeline"`
	Status       JobStatus `json:"status"`
	ObjectKey    string    `json:"object_key"`
	OutputKey    string    `json:"output_key,omitempty"`
	FrameCount   int       `json:"frame_count,omitempty"`
	Duration     float64   `json:"duration_seconds,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Attempt      int       `json:"attempt"`
	MaxAttempts  int       `json:"max_attempts"`
}
