package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edupulse/healthwatch/pkg/model"
)

// envelope is the structured response contract: an alerts array whose
// objects map 1:1 onto alert fields, plus an optional portfolio analysis.
type envelope struct {
	Alerts   []rawAlert `json:"alerts"`
	Analysis string     `json:"analysis,omitempty"`
}

// rawAlert is one candidate as the scoring service emits it, before
// stamping. Field names follow the admin-console wire contract.
type rawAlert struct {
	Type           string `json:"type"`
	Severity       string `json:"severity"`
	AccountID      string `json:"accountId"`
	AccountName    string `json:"accountName"`
	TeacherID      string `json:"teacherId,omitempty"`
	TeacherName    string `json:"teacherName,omitempty"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
	Reasoning      string `json:"reasoning,omitempty"`
}

// parseEnvelope extracts the alert envelope from raw response text. Models
// sometimes wrap the JSON in prose or code fences; the outermost object is
// taken. No parseable object, or an object without an alerts array, is a
// hard failure for the whole call.
func parseEnvelope(text string) (*envelope, error) {
	obj, ok := extractJSONObject(text)
	if !ok {
		return nil, fmt.Errorf("no JSON object in response: %w", ErrAnalysisFailed)
	}

	var env envelope
	if err := json.Unmarshal([]byte(obj), &env); err != nil {
		return nil, fmt.Errorf("parse alert envelope: %v: %w", err, ErrAnalysisFailed)
	}
	if env.Alerts == nil {
		return nil, fmt.Errorf("response has no alerts array: %w", ErrAnalysisFailed)
	}
	return &env, nil
}

// extractJSONObject returns the outermost {...} span of s.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// toAlert maps a raw candidate onto the alert entity. A parsed envelope is
// trusted as a whole; out-of-range type or severity values are normalized
// rather than failing the call.
func (r rawAlert) toAlert() model.Alert {
	typ := model.AlertType(r.Type)
	if !typ.Valid() {
		typ = model.TypeEngagement
	}
	sev := model.Severity(r.Severity)
	if !sev.Valid() {
		sev = model.SeverityMedium
	}
	return model.Alert{
		Type:           typ,
		Severity:       sev,
		AccountID:      r.AccountID,
		AccountName:    r.AccountName,
		TeacherID:      r.TeacherID,
		TeacherName:    r.TeacherName,
		Title:          r.Title,
		Description:    r.Description,
		Recommendation: r.Recommendation,
		Reasoning:      r.Reasoning,
	}
}
