package models

// Status is the risk level reported to the client.
type Status string

const (
	StatusSafe       Status = "SAFE"
	StatusSuspicious Status = "SUSPICIOUS"
	StatusScam       Status = "SCAM"
	StatusError      Status = "ERROR"
)

// Display colors associated with each status.
const (
	ColorGreen  = "green"
	ColorOrange = "orange"
	ColorRed    = "red"
	ColorGray   = "gray"
)

// ListeningMessage is shown while there is no signal to assess.
const ListeningMessage = "Listening..."

// Verdict is the canonical risk assessment sent back to the client.
// Confidence is nil when nothing has been assessed yet.
type Verdict struct {
	Status     Status   `json:"status"`
	Message    string   `json:"message"`
	Color      string   `json:"color"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// HasConfidence reports whether the verdict carries an assessed confidence.
func (v Verdict) HasConfidence() bool {
	return v.Confidence != nil
}

// ListeningVerdict is the benign verdict used for silence and masked backend failures.
func ListeningVerdict() Verdict {
	return Verdict{
		Status:  StatusSafe,
		Message: ListeningMessage,
		Color:   ColorGreen,
	}
}

// ErrorVerdict reports malformed client input.
func ErrorVerdict(message string) Verdict {
	return Verdict{
		Status:  StatusError,
		Message: message,
		Color:   ColorGray,
	}
}
