package notify

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/coursewatch/internal/jsonl"
)

// DeliveryFileName is the delivery log file in the data directory.
const DeliveryFileName = "deliveries.jsonl"

// Delivery records one confirmed send.
type Delivery struct {
	ID       string `json:"id"`
	Template string `json:"template"`
	Receiver string `json:"receiver"`
	SentAt   int64  `json:"sent_at"`
}

// Time returns SentAt as a time.
func (d Delivery) Time() time.Time { return time.Unix(d.SentAt, 0) }

// DeliveryLog is the append-only record of sent notifications. A missing
// file means nothing was sent; malformed lines are ignored.
type DeliveryLog struct {
	mu   sync.Mutex
	path string
	loc  *time.Location
}

// OpenDeliveryLog returns the log stored at path. Calendar days are computed
// in loc.
func OpenDeliveryLog(path string, loc *time.Location) *DeliveryLog {
	if loc == nil {
		loc = time.UTC
	}
	return &DeliveryLog{path: path, loc: loc}
}

// Path returns the log file path.
func (l *DeliveryLog) Path() string { return l.path }

// Record appends a delivery and syncs it to disk.
func (l *DeliveryLog) Record(template, receiver string, at time.Time) (Delivery, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Delivery{}, fmt.Errorf("generating delivery id: %w", err)
	}
	d := Delivery{ID: id.String(), Template: template, Receiver: receiver, SentAt: at.Unix()}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := jsonl.Append(l.path, d); err != nil {
		return Delivery{}, fmt.Errorf("recording delivery: %w", err)
	}
	return d, nil
}

// All returns every readable delivery in file order.
func (l *DeliveryLog) All() ([]Delivery, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := jsonl.Read(l.path)
	if err != nil {
		return nil, err
	}
	out := make([]Delivery, 0, len(records))
	for _, raw := range records {
		var d Delivery
		if err := json.Unmarshal(raw, &d); err != nil || d.Template == "" {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// SentOn reports whether template was delivered to receiver on the calendar
// day of day.
func (l *DeliveryLog) SentOn(template, receiver string, day time.Time) (bool, error) {
	all, err := l.All()
	if err != nil {
		return false, err
	}
	y, m, dd := day.In(l.loc).Date()
	for _, d := range all {
		if d.Template != template || d.Receiver != receiver {
			continue
		}
		sy, sm, sd := d.Time().In(l.loc).Date()
		if sy == y && sm == m && sd == dd {
			return true, nil
		}
	}
	return false, nil
}
