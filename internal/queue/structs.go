package queue

// JobQueue is the list the gateway pushes transcode requests onto and the
// workers consume from.
const JobQueue = "video_jobs"

// TranscodeJob is one unit of work. It has no identity beyond the tuple;
// duplicate deliveries happen and the pipeline must stay idempotent.
type TranscodeJob struct {
	VideoID int64  `json:"videoId"`
	Key     string `json:"key"`
}
