package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"bilancio/internal/core"

	"github.com/google/uuid"
)

// RoutingKey is the routing key every ledger event is published under.
const RoutingKey = "ledger.entry"

const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// LedgerEvent announces a change to one ledger row. It carries ids only;
// consumers load the row from the store.
type LedgerEvent struct {
	EventID   string         `json:"event_id"`
	Op        string         `json:"op"`
	Kind      core.EntryKind `json:"kind"`
	EntryID   int64          `json:"entry_id"`
	UserID    string         `json:"user_id"`
	Year      int            `json:"year"`
	Month     int            `json:"month"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewLedgerEvent stamps a fresh event id and timestamp.
func NewLedgerEvent(op string, kind core.EntryKind, entryID int64, userID string, p core.Period) *LedgerEvent {
	return &LedgerEvent{
		EventID:   uuid.NewString(),
		Op:        op,
		Kind:      kind,
		EntryID:   entryID,
		UserID:    userID,
		Year:      p.Year,
		Month:     int(p.Month),
		Timestamp: time.Now().UTC(),
	}
}

// Period is the month the changed row belongs to.
func (e *LedgerEvent) Period() core.Period {
	return core.Period{Year: e.Year, Month: time.Month(e.Month)}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var evt LedgerEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	switch evt.Op {
	case OpCreate, OpUpdate, OpDelete:
	default:
		return nil, fmt.Errorf("unknown op %q", evt.Op)
	}
	switch evt.Kind {
	case core.KindIncome, core.KindExpense, core.KindBudget:
	default:
		return nil, fmt.Errorf("unknown kind %q", evt.Kind)
	}
	if evt.EntryID <= 0 || evt.UserID == "" {
		return nil, fmt.Errorf("event %s is missing entry or user id", evt.EventID)
	}
	return &evt, nil
}
