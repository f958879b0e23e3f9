package protocol

import "time"

// StatusReport is the hardware status frame pushed by the rover bridge
// over MQTT or the status socket, and stored in the status file.
type StatusReport struct {
	Mode      string    `json:"mode" yaml:"mode"`
	Mission   string    `json:"mission" yaml:"mission"`
	Timestamp time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// CycleRecord is the journaled/published summary of one supervisor cycle.
type CycleRecord struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Mode       string    `json:"mode"`
	Mission    string    `json:"mission"`
	Decision   string    `json:"decision"`
	Unit       string    `json:"unit,omitempty"`
	Outcome    string    `json:"outcome"`
	ErrorCode  int       `json:"error_code,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Duration is the wall time spent in the cycle.
func (r CycleRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Personal.AI order the ending
