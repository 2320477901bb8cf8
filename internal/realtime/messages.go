package realtime

import "encoding/json"

// EventKind is the closed set of frames the gateway exchanges with
// clients. New kinds must be added here, never as ad hoc string literals
// at call sites.
type EventKind string

const (
	// Server → client
	EventJobBroadcast    EventKind = "job_broadcast"
	EventNewEstimate     EventKind = "new_estimate"
	EventWorkerSelected  EventKind = "worker_selected"
	EventJobClosed       EventKind = "job_closed"
	EventAvailabilityAck EventKind = "availability_ack"

	// Client → server
	EventAvailabilityChanged EventKind = "availability_changed"
)

// Envelope is the wire frame. Payload is kind-specific.
type Envelope struct {
	Kind    EventKind       `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func marshalFrame(kind EventKind, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Kind: kind, Payload: raw})
}

// AvailabilityAckPayload tells a worker connection what the durable row
// looked like after their availability event was applied, and whether the
// connection is now inside a category partition.
type AvailabilityAckPayload struct {
	Availability string `json:"availability"`
	Verification string `json:"verification"`
	Registered   bool   `json:"registered"`
}
