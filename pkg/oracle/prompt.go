package oracle

import (
	"encoding/json"
	"fmt"

	"github.com/edupulse/healthwatch/pkg/model"
)

const systemPrompt = `You are a customer success analyst for an education SaaS platform.
You analyze per-school usage metrics and propose actionable alerts for the
customer success team: churn risk, upsell opportunity, renewal reminder,
engagement gap, onboarding issue, support follow-up.

Respond with a single JSON object and nothing else, in this exact shape:
{
  "alerts": [
    {
      "type": "churn_risk | upsell | renewal | engagement | onboarding | support",
      "severity": "critical | high | medium | low",
      "accountId": "<school account id>",
      "accountName": "<school name>",
      "teacherId": "<teacher id, only when the alert concerns one teacher>",
      "teacherName": "<teacher name, optional>",
      "title": "<short headline>",
      "description": "<what the metrics show>",
      "recommendation": "<concrete next action for the team>",
      "reasoning": "<why you raised this>"
    }
  ],
  "analysis": "<one-paragraph overall read of the portfolio, optional>"
}

Do not restate a condition that is already covered by one of the open alerts
you are given. Propose at most the requested number of alerts and only ones
worth an operator's time.`

// buildUserPrompt renders the metrics snapshot and open-alert context into
// the analysis request sent to the scoring service.
func buildUserPrompt(accounts []model.AccountSummary, open []model.OpenAlertSummary, maxAlerts int) (string, error) {
	accountJSON, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal account summaries: %w", err)
	}

	openJSON := []byte("[]")
	if len(open) > 0 {
		openJSON, err = json.MarshalIndent(open, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal open alert summaries: %w", err)
		}
	}

	return fmt.Sprintf(`Analyze these school accounts and propose at most %d alerts.

Account metrics:
%s

Alerts already open (do not re-raise these conditions):
%s`, maxAlerts, accountJSON, openJSON), nil
}
