package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// RollupRequestMessage asks a worker to compute and export one project's rollup.
type RollupRequestMessage struct {
	ProjectID   int64     `json:"project_id"`
	RequestedBy string    `json:"requested_by,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewRollupRequestMessage creates a request stamped with the current time
func NewRollupRequestMessage(projectID int64, requestedBy string) *RollupRequestMessage {
	return &RollupRequestMessage{
		ProjectID:   projectID,
		RequestedBy: requestedBy,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RollupRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RollupRequestMessageFromJSON decodes and validates a request body.
func RollupRequestMessageFromJSON(data []byte) (*RollupRequestMessage, error) {
	var msg RollupRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ProjectID <= 0 {
		return nil, fmt.Errorf("invalid project_id %d", msg.ProjectID)
	}
	return &msg, nil
}

// RollupComputedMessage announces a finished rollup. Degraded lists the
// categories whose sources failed during the computation.
type RollupComputedMessage struct {
	ProjectID     int64     `json:"project_id"`
	Count         int       `json:"count"`
	BudgetCodes   int       `json:"budget_codes"`
	ForecastTotal float64   `json:"forecast_total"`
	Degraded      []string  `json:"degraded,omitempty"`
	ComputedAt    time.Time `json:"computed_at"`
}

// ToJSON converts the message to JSON bytes
func (m *RollupComputedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RollupComputedMessageFromJSON(data []byte) (*RollupComputedMessage, error) {
	var msg RollupComputedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
