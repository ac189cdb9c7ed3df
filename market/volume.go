package market

// VolumeLevel classifies recent volume against the preceding periods.
type VolumeLevel string

const (
	VolumeInsufficient VolumeLevel = "Insufficient volume data"
	VolumeHigh         VolumeLevel = "HIGH (significantly above average)"
	VolumeElevated     VolumeLevel = "ELEVATED (above average)"
	VolumeNormal       VolumeLevel = "NORMAL (average levels)"
	VolumeLow          VolumeLevel = "LOW (below average)"
)

const (
	recentPeriods   = 5
	baselinePeriods = 20
)

// AnalyzeVolume compares the mean of the last five volumes with the mean of
// the fifteen before them (or everything before them on shorter series).
// Above 1.5x is HIGH, above 1.2x ELEVATED, below 0.7x LOW.
func AnalyzeVolume(volumes []float64) VolumeLevel {
	if len(volumes) < 2 {
		return VolumeInsufficient
	}

	recent := volumes[max(0, len(volumes)-recentPeriods):]
	var older []float64
	if len(volumes) >= baselinePeriods {
		older = volumes[len(volumes)-baselinePeriods : len(volumes)-recentPeriods]
	} else if len(volumes) > recentPeriods {
		older = volumes[:len(volumes)-recentPeriods]
	}

	avgRecent := mean(recent)
	avgOlder := avgRecent
	if len(older) > 0 {
		avgOlder = mean(older)
	}

	switch {
	case avgRecent > avgOlder*1.5:
		return VolumeHigh
	case avgRecent > avgOlder*1.2:
		return VolumeElevated
	case avgRecent < avgOlder*0.7:
		return VolumeLow
	default:
		return VolumeNormal
	}
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
