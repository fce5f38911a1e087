package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id"`
	PropertyID    string    `json:"property_id,omitempty"`
	Status        string    `json:"status"`
	Details       any       `json:"details,omitempty"`
}

// Logger emits structured JSON audit events for journal mutations,
// external syncs and compensations.
type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogMutation(eventType, transactionID, propertyID string, details any) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     eventType,
		TransactionID: transactionID,
		PropertyID:    propertyID,
		Status:        "SUCCESS",
		Details:       details,
	})
}

func (a *Logger) LogCompensation(transactionID, reason string) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "COMPENSATE",
		TransactionID: transactionID,
		Status:        "ROLLED_BACK",
		Details:       map[string]string{"reason": reason},
	})
}

func (a *Logger) LogError(transactionID, propertyID string, err error) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "ERROR",
		TransactionID: transactionID,
		PropertyID:    propertyID,
		Status:        "FAILED",
		Details:       map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
