package airQuality

type Severity string

const (
	Severity_Good     Severity = "good"
	Severity_Moderate Severity = "moderate"
	Severity_Bad      Severity = "bad"
)

type AQILevel struct {
	Level       string   `json:"level"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

var (
	levelGood = AQILevel{
		Level:       "Good",
		Severity:    Severity_Good,
		Description: "Air quality is satisfactory and poses little or no risk.",
	}
	levelModerate = AQILevel{
		Level:       "Moderate",
		Severity:    Severity_Moderate,
		Description: "Air quality is acceptable; a very small number of unusually sensitive people may be affected.",
	}
	levelUnhealthySensitive = AQILevel{
		Level:       "Unhealthy for Sensitive Groups",
		Severity:    Severity_Bad,
		Description: "Sensitive groups may experience mild aggravation of symptoms; healthy people may notice irritation.",
	}
)

// Classify partitions the index at 50 and 100. Everything above 100 shares the
// last band.
func Classify(aqi int) AQILevel {
	switch {
	case aqi <= 50:
		return levelGood
	case aqi <= 100:
		return levelModerate
	default:
		return levelUnhealthySensitive
	}
}
