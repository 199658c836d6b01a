package model

import (
	"sort"
	"time"
)

// AlertType classifies what kind of customer-health condition an alert flags.
type AlertType string

const (
	TypeChurnRisk  AlertType = "churn_risk"
	TypeUpsell     AlertType = "upsell"
	TypeRenewal    AlertType = "renewal"
	TypeEngagement AlertType = "engagement"
	TypeOnboarding AlertType = "onboarding"
	TypeSupport    AlertType = "support"
)

// Valid reports whether t is a known alert type.
func (t AlertType) Valid() bool {
	switch t {
	case TypeChurnRisk, TypeUpsell, TypeRenewal, TypeEngagement, TypeOnboarding, TypeSupport:
		return true
	}
	return false
}

// Severity ranks how urgently an alert needs operator attention.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Status is the position of an alert in its operator-driven lifecycle.
type Status string

const (
	StatusNew           Status = "new"
	StatusAcknowledged  Status = "acknowledged"
	StatusInProgress    Status = "in_progress"
	StatusResolved      Status = "resolved"
	StatusDismissed     Status = "dismissed"
	StatusFalsePositive Status = "false_positive"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusAcknowledged, StatusInProgress, StatusResolved, StatusDismissed, StatusFalsePositive:
		return true
	}
	return false
}

// IsTerminal reports whether s ends the lifecycle (until an explicit reopen).
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusDismissed || s == StatusFalsePositive
}

// BlocksDuplicate reports whether an alert in this status counts as "already
// raised" for dedup purposes. Resolved and dismissed alerts do not block a
// recurrence of the same condition; false positives still do.
func (s Status) BlocksDuplicate() bool {
	return s != StatusResolved && s != StatusDismissed
}

// Alert is a single actionable customer-health finding for one account,
// optionally scoped to a specific teacher.
type Alert struct {
	ID             string    `json:"id" db:"id"`
	Type           AlertType `json:"type" db:"type"`
	Severity       Severity  `json:"severity" db:"severity"`
	AccountID      string    `json:"account_id" db:"account_id"`
	AccountName    string    `json:"account_name" db:"account_name"`
	TeacherID      string    `json:"teacher_id,omitempty" db:"teacher_id"`
	TeacherName    string    `json:"teacher_name,omitempty" db:"teacher_name"`
	Title          string    `json:"title" db:"title"`
	Description    string    `json:"description" db:"description"`
	Recommendation string    `json:"recommendation" db:"recommendation"`
	Reasoning      string    `json:"reasoning,omitempty" db:"ai_reasoning"`

	// MetricsSnapshot is an opaque JSON blob recording the inputs that
	// produced this alert. Stored for audit, never interpreted.
	MetricsSnapshot string `json:"metrics_snapshot,omitempty" db:"metrics_snapshot"`

	Status          Status     `json:"status" db:"status"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolutionNotes string     `json:"resolution_notes,omitempty" db:"resolution_notes"`
	Fingerprint     string     `json:"fingerprint" db:"fingerprint"`
	BatchID         string     `json:"generation_batch_id,omitempty" db:"generation_batch_id"`
}

// SetStatus applies the field semantics of a status change: entering
// acknowledged stamps AcknowledgedAt, entering a terminal status stamps
// ResolvedAt, reopening to new clears both. Legality of the transition is
// the lifecycle manager's concern, not this method's.
func (a *Alert) SetStatus(to Status, notes string, now time.Time) {
	a.Status = to
	switch {
	case to == StatusAcknowledged:
		t := now
		a.AcknowledgedAt = &t
	case to.IsTerminal():
		t := now
		a.ResolvedAt = &t
	case to == StatusNew:
		a.AcknowledgedAt = nil
		a.ResolvedAt = nil
	}
	if notes != "" {
		a.ResolutionNotes = notes
	}
}

// Trend is the direction an account's health has been moving.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendFlat Trend = "flat"
	TrendDown Trend = "down"
)

// Valid reports whether t is a known trend.
func (t Trend) Valid() bool {
	return t == TrendUp || t == TrendFlat || t == TrendDown
}

// AccountSummary is one account's usage metrics as supplied by the metrics
// snapshot provider. The engine consumes these; it never computes them.
type AccountSummary struct {
	AccountID         string  `json:"account_id" yaml:"account_id"`
	AccountName       string  `json:"account_name" yaml:"account_name"`
	HealthScore       int     `json:"health_score" yaml:"health_score"`
	Trend             Trend   `json:"trend" yaml:"trend"`
	ActiveTeachers    int     `json:"active_teachers" yaml:"active_teachers"`
	TotalTeachers     int     `json:"total_teachers" yaml:"total_teachers"`
	WeeklyActiveRatio float64 `json:"weekly_active_ratio" yaml:"weekly_active_ratio"`
	DaysUntilExpiry   int     `json:"days_until_expiry" yaml:"days_until_expiry"`
	MonthlySpend      float64 `json:"monthly_spend" yaml:"monthly_spend"`
}

// OpenAlertSummary is the compact projection of an open alert that is sent
// to the oracle so it can avoid restating conditions already raised.
type OpenAlertSummary struct {
	Type      AlertType `json:"type"`
	AccountID string    `json:"account_id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
}

// OpenAlertSummaries projects alerts into oracle context entries, most
// recent first, capped at max. A max of zero or less means no cap. The cap
// bounds the oracle prompt; it is a cost control, not a correctness one.
func OpenAlertSummaries(alerts []Alert, max int) []OpenAlertSummary {
	sorted := make([]Alert, len(alerts))
	copy(sorted, alerts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if max > 0 && len(sorted) > max {
		sorted = sorted[:max]
	}
	out := make([]OpenAlertSummary, len(sorted))
	for i, a := range sorted {
		out[i] = OpenAlertSummary{Type: a.Type, AccountID: a.AccountID, Title: a.Title, Status: a.Status}
	}
	return out
}

// GenerationBatch is the audit record of one generation run. Written once,
// never mutated.
type GenerationBatch struct {
	BatchID          string    `json:"batch_id" db:"batch_id"`
	CompletedAt      time.Time `json:"completed_at" db:"completed_at"`
	AccountsAnalyzed int       `json:"accounts_analyzed" db:"accounts_analyzed"`
	AlertsGenerated  int       `json:"alerts_generated" db:"alerts_generated"`
	AlertsSkipped    int       `json:"alerts_skipped" db:"alerts_skipped"`
	ModelUsed        string    `json:"model_used" db:"model_used"`
	TokensUsed       int64     `json:"tokens_used" db:"tokens_used"`
}
