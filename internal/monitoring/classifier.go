// Package monitoring evaluates live telemetry against the physics model:
// it derives the expected power for a farm's current conditions and
// classifies the deviation of the measured output.
package monitoring

import "fmt"

// Severity tiers, most severe first.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityNormal   = "normal"
)

// Assessment is the outcome of classifying one performance deviation.
type Assessment struct {
	CreateAlert     bool
	AlertType       string
	Severity        string
	Message         string
	Recommendations string
}

// Metrics derives the performance ratio and percentage deviation from the
// actual and expected AC power. Both fall back to zero when no meaningful
// expectation exists, which the classifier then treats as critical.
func Metrics(actualKW, expectedKW float64) (performanceRatio, deviationPercent float64) {
	if expectedKW > 0 {
		performanceRatio = actualKW / expectedKW
		deviationPercent = (actualKW - expectedKW) / expectedKW * 100
	}
	return performanceRatio, deviationPercent
}

// Classify assigns a severity tier to a deviation. The chain is ordered and
// first-match-wins; boundaries are strict, so a deviation of exactly -10%
// falls through to the next tier.
func Classify(deviationPercent, performanceRatio float64) Assessment {
	switch {
	case deviationPercent < -20 || performanceRatio < 0.6:
		return Assessment{
			CreateAlert:     true,
			AlertType:       "severe_underperformance",
			Severity:        SeverityCritical,
			Message:         fmt.Sprintf("Critical underperformance detected: %.1f%% below expected", deviationPercent),
			Recommendations: "Immediate inspection required. Check for equipment failures, shading, or soiling.",
		}
	case deviationPercent < -10 || performanceRatio < 0.8:
		return Assessment{
			CreateAlert:     true,
			AlertType:       "underperformance",
			Severity:        SeverityHigh,
			Message:         fmt.Sprintf("Significant underperformance detected: %.1f%% below expected", deviationPercent),
			Recommendations: "Schedule maintenance check. Inspect for soiling, shading, or inverter issues.",
		}
	case deviationPercent < -5 || performanceRatio < 0.9:
		return Assessment{
			CreateAlert:     true,
			AlertType:       "minor_underperformance",
			Severity:        SeverityMedium,
			Message:         fmt.Sprintf("Minor underperformance detected: %.1f%% below expected", deviationPercent),
			Recommendations: "Monitor closely. Consider cleaning panels or checking system settings.",
		}
	case deviationPercent > 10:
		return Assessment{
			CreateAlert:     true,
			AlertType:       "overperformance",
			Severity:        SeverityLow,
			Message:         fmt.Sprintf("Unexpected overperformance: %.1f%% above expected", deviationPercent),
			Recommendations: "Verify measurement accuracy. Check for data quality issues.",
		}
	default:
		return Assessment{
			CreateAlert:     false,
			AlertType:       "normal",
			Severity:        SeverityNormal,
			Message:         fmt.Sprintf("Performance within normal range: %.1f%% deviation", deviationPercent),
			Recommendations: "Continue normal operation.",
		}
	}
}
