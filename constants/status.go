package constants

// JobStatus is the canonical status for rows in extraction_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusPartial   JobStatus = "PARTIAL"  // multi-page with at least one failed page
	JobStatusRejected  JobStatus = "REJECTED" // quality or document type rejection
	JobStatusFailed    JobStatus = "FAILED"
)

// Strategy names as they appear in responses and job rows.
const (
	StrategyVision         = "vision_entity_extraction"
	StrategyTextCompletion = "chat_completions_entity_extraction"
)
