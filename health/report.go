package health

import "time"

// Report is the serializable outcome of an aggregated check.
type Report struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Checks    []CheckReport `json:"checks,omitempty"`
}

// CheckReport is one entry in a Report.
type CheckReport struct {
	Name     string         `json:"name"`
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// NewReport orders results by names. Names without a result are skipped.
func NewReport(names []string, results map[string]Result) Report {
	report := Report{
		Status:    OverallStatus(results).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for _, name := range names {
		result, ok := results[name]
		if !ok {
			continue
		}
		check := CheckReport{
			Name:     name,
			Status:   result.Status.String(),
			Message:  result.Message,
			Duration: result.Duration.String(),
			Details:  result.Details,
		}
		if result.Error != nil {
			check.Error = result.Error.Error()
		}
		report.Checks = append(report.Checks, check)
	}
	return report
}

// Healthy reports whether the overall status is not unhealthy.
func (r Report) Healthy() bool {
	return r.Status != StatusUnhealthy.String()
}
