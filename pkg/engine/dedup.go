package engine

import "github.com/edupulse/healthwatch/pkg/model"

// Filter drops candidates whose fingerprint is already raised by an alert
// that has not been resolved or dismissed, keeping at most one open alert
// per fingerprint. Duplicates within the candidate batch itself are dropped
// the same way. A resolved or dismissed alert does not block re-raising the
// same condition.
func Filter(candidates, existing []model.Alert) (unique []model.Alert, skipped int) {
	blocked := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		if a.Status.BlocksDuplicate() {
			blocked[a.Fingerprint] = struct{}{}
		}
	}

	for _, c := range candidates {
		if _, dup := blocked[c.Fingerprint]; dup {
			skipped++
			continue
		}
		blocked[c.Fingerprint] = struct{}{}
		unique = append(unique, c)
	}
	return unique, skipped
}
