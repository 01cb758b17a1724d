package journal

import (
	"strings"
	"time"

	"github.com/1broseidon/edgebar/internal/windowmanager"
)

// Pass is one persisted reconciliation pass iteration.
type Pass struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Reason     string    `gorm:"not null;index" json:"reason"`
	Outcome    string    `gorm:"not null;index" json:"outcome"`
	StartedAt  time.Time `gorm:"not null;index" json:"started_at"`
	DurationUS int64     `gorm:"not null;default:0" json:"duration_us"`
	Displays   string    `gorm:"not null;default:''" json:"displays"` // comma separated
	Added      string    `gorm:"not null;default:''" json:"added"`
	Removed    string    `gorm:"not null;default:''" json:"removed"`
	Error      string    `gorm:"not null;default:''" json:"error,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// FromRecord converts a reconciler pass record.
func FromRecord(rec windowmanager.PassRecord) *Pass {
	return &Pass{
		ID:         rec.ID,
		Reason:     rec.Reason.String(),
		Outcome:    string(rec.Outcome),
		StartedAt:  rec.StartedAt,
		DurationUS: rec.Duration.Microseconds(),
		Displays:   joinNames(rec.Displays),
		Added:      joinNames(rec.Added),
		Removed:    joinNames(rec.Removed),
		Error:      rec.Error,
	}
}

// Duration returns the pass duration.
func (p *Pass) Duration() time.Duration {
	return time.Duration(p.DurationUS) * time.Microsecond
}

// DisplayNames, AddedNames and RemovedNames split the stored lists.
func (p *Pass) DisplayNames() []string { return splitNames(p.Displays) }
func (p *Pass) AddedNames() []string   { return splitNames(p.Added) }
func (p *Pass) RemovedNames() []string { return splitNames(p.Removed) }

func joinNames(names []string) string {
	return strings.Join(names, ",")
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
