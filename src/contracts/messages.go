package contracts

// EventBatch is the unit published on the events topic.
// Published to: hookstat.events
// Key: {run_id}
type EventBatch struct {
	RunID string `json:"run_id" msgpack:"run_id"`
	// Seq is the 0-indexed position of the batch within the run.
	Seq    int64   `json:"seq" msgpack:"seq"`
	Events []Event `json:"events" msgpack:"events"`
}

// FindingMessage carries one finding of a finished run.
// Published to: hookstat.findings
// Key: {run_id}
type FindingMessage struct {
	RunID   string  `json:"run_id" msgpack:"run_id"`
	Finding Finding `json:"finding" msgpack:"finding"`
}

// Topic names used on the broker.
const (
	// TopicEvents carries event batches from the instrumentation engine.
	TopicEvents = "hookstat.events"

	// TopicFindings carries ranked findings once a run finishes.
	TopicFindings = "hookstat.findings"
)
