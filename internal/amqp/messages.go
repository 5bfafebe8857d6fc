package amqp

import (
	"encoding/json"
	"time"
)

// TransactionAction names the mutation that produced a TransactionEvent.
type TransactionAction string

const (
	ActionCreated TransactionAction = "created"
	ActionUpdated TransactionAction = "updated"
	ActionDeleted TransactionAction = "deleted"
)

// TransactionEvent announces a transaction mutation. It only carries identifiers;
// consumers read current state from the database.
type TransactionEvent struct {
	TransactionID string            `json:"transaction_id"`
	Action        TransactionAction `json:"action"`
	Type          string            `json:"transaction_type,omitempty"`
	CategoryID    string            `json:"category_id,omitempty"`
	// PreviousCategoryID is set when an update moved the transaction between categories.
	PreviousCategoryID string    `json:"previous_category_id,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

func NewTransactionEvent(id string, action TransactionAction, txType, categoryID string) *TransactionEvent {
	return &TransactionEvent{
		TransactionID: id,
		Action:        action,
		Type:          txType,
		CategoryID:    categoryID,
		Timestamp:     time.Now(),
	}
}

// CategoryIDs lists the categories whose budgets the event may affect.
func (m *TransactionEvent) CategoryIDs() []string {
	var ids []string
	if m.CategoryID != "" {
		ids = append(ids, m.CategoryID)
	}
	if m.PreviousCategoryID != "" && m.PreviousCategoryID != m.CategoryID {
		ids = append(ids, m.PreviousCategoryID)
	}
	return ids
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// BudgetAlertMessage fans a budget alert out to notification consumers.
type BudgetAlertMessage struct {
	BudgetID   string    `json:"budget_id"`
	BudgetName string    `json:"budget_name"`
	Type       string    `json:"type"`
	Priority   string    `json:"priority"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
