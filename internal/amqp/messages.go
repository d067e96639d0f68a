package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operation names a maintenance job the worker knows how to run.
type Operation string

const (
	OpRecomputeInvoices Operation = "recompute_invoices"
	OpSweepOverdue      Operation = "sweep_overdue"
)

func (o Operation) Valid() bool {
	return o == OpRecomputeInvoices || o == OpSweepOverdue
}

// MaintenanceMessage asks the worker to run one job. OwnerID 0 targets
// every owner, which only the overdue sweep supports.
type MaintenanceMessage struct {
	ID        uuid.UUID `json:"id"`
	Operation Operation `json:"operation"`
	OwnerID   int64     `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMaintenanceMessage(op Operation, ownerID int64) *MaintenanceMessage {
	return &MaintenanceMessage{
		ID:        uuid.New(),
		Operation: op,
		OwnerID:   ownerID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *MaintenanceMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate rejects messages the worker could never process.
func (m *MaintenanceMessage) Validate() error {
	if !m.Operation.Valid() {
		return fmt.Errorf("unknown operation %q", m.Operation)
	}
	if m.OwnerID < 0 {
		return fmt.Errorf("invalid owner id %d", m.OwnerID)
	}
	if m.Operation == OpRecomputeInvoices && m.OwnerID == 0 {
		return fmt.Errorf("%s requires an owner", m.Operation)
	}
	return nil
}

// MaintenanceMessageFromJSON decodes and validates a message body.
func MaintenanceMessageFromJSON(data []byte) (*MaintenanceMessage, error) {
	var msg MaintenanceMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
