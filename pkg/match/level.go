package match

// ConfidenceLevel is the display band of a confidence score.
type ConfidenceLevel struct {
	Label string `json:"label"`
	Range string `json:"range"`
	Key   string `json:"key"`
}

var (
	LevelHigh    = ConfidenceLevel{Label: "High", Range: "80-100", Key: "high"}
	LevelMedium  = ConfidenceLevel{Label: "Medium", Range: "60-79", Key: "medium"}
	LevelLow     = ConfidenceLevel{Label: "Low", Range: "30-59", Key: "low"}
	LevelVeryLow = ConfidenceLevel{Label: "Very Low", Range: "0-29", Key: "very_low"}
)

// Level maps a score to its confidence band.
func Level(score int) ConfidenceLevel {
	switch {
	case score >= 80:
		return LevelHigh
	case score >= 60:
		return LevelMedium
	case score >= 30:
		return LevelLow
	default:
		return LevelVeryLow
	}
}
