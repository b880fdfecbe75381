package models

// Event types published to Kafka.
const (
	EventVerdictEmitted = "scamguard.verdict.emitted"
	EventSessionStarted = "scamguard.session.started"
	EventSessionEnded   = "scamguard.session.ended"
)

// VerdictEvent records a verdict delivered to a session.
type VerdictEvent struct {
	EventType  string   `json:"eventType"`
	SessionID  string   `json:"sessionId"`
	ChunkID    string   `json:"chunkId"`
	ChunkKind  string   `json:"chunkKind"`
	Status     Status   `json:"status"`
	Message    string   `json:"message"`
	Confidence *float64 `json:"confidence,omitempty"`
	LatencyMs  int64    `json:"latencyMs"`
	Timestamp  int64    `json:"timestamp"`
}

// SessionEvent records a session lifecycle transition.
type SessionEvent struct {
	EventType     string `json:"eventType"`
	SessionID     string `json:"sessionId"`
	RemoteAddr    string `json:"remoteAddr,omitempty"`
	Reason        string `json:"reason,omitempty"`
	DurationMs    int64  `json:"durationMs,omitempty"`
	VerdictCount  int64  `json:"verdictCount,omitempty"`
	DroppedChunks int64  `json:"droppedChunks,omitempty"`
	Timestamp     int64  `json:"timestamp"`
}
