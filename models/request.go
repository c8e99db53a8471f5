package models

import "time"

// ConversionRequest names a source object to convert and the destination
// object for the produced PDF.
type ConversionRequest struct {
	SourceBucket string `json:"source_bucket"`
	SourceKey    string `json:"source_key"`
	DestBucket   string `json:"dest_bucket"`
	DestKey      string `json:"dest_key"`
}

// Validate reports the first missing required field, or "".
func (r *ConversionRequest) Validate() string {
	switch {
	case r.SourceBucket == "":
		return "source_bucket"
	case r.SourceKey == "":
		return "source_key"
	case r.DestBucket == "":
		return "dest_bucket"
	case r.DestKey == "":
		return "dest_key"
	}
	return ""
}

// ConversionJob is the envelope carried on the Redis queues.
type ConversionJob struct {
	Request   ConversionRequest `json:"request"`
	CreatedAt time.Time         `json:"createdAt"`
}

// FailedJob is pushed to the failed queue when a queued conversion ends in
// error.
type FailedJob struct {
	Request  ConversionRequest `json:"request"`
	Reason   *string           `json:"reason"`
	X2TCode  *int              `json:"x2t_code"`
	Message  string            `json:"message"`
	FailedAt time.Time         `json:"failedAt"`
}
