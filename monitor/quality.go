package monitor

// LatencyQuality is the display band for a measured round-trip time.
type LatencyQuality string

const (
	QualityExcellent LatencyQuality = "excellent"
	QualityGood      LatencyQuality = "good"
	QualityFair      LatencyQuality = "fair"
	QualityPoor      LatencyQuality = "poor"
	QualityBad       LatencyQuality = "bad"
	QualityUnknown   LatencyQuality = "unknown"
)

// LatencyBand maps a latency in milliseconds to its display band.
func LatencyBand(ms float64) LatencyQuality {
	switch {
	case ms < 50:
		return QualityExcellent
	case ms < 100:
		return QualityGood
	case ms < 200:
		return QualityFair
	case ms < 500:
		return QualityPoor
	default:
		return QualityBad
	}
}
