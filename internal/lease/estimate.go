package lease

import "time"

const gib = 1 << 30

// RecommendedTimeout suggests an initial visibility timeout for an input of
// the given size, tiered from observed download + transcode + upload rates.
func RecommendedTimeout(sizeBytes int64) time.Duration {
	sizeGB := float64(sizeBytes) / gib
	switch {
	case sizeGB < 0.1:
		return 5 * time.Minute
	case sizeGB < 0.5:
		return 10 * time.Minute
	case sizeGB < 2:
		return 20 * time.Minute
	case sizeGB < 4:
		return 35 * time.Minute
	case sizeGB < 6:
		return 50 * time.Minute
	default:
		return 60 * time.Minute
	}
}

// EstimateProcessing estimates total wall time for one job: 30 s/GB download,
// 480 s/GB transcode, 45 s/GB upload, one minute of fixed overhead.
func EstimateProcessing(sizeBytes int64) time.Duration {
	sizeGB := float64(sizeBytes) / gib
	seconds := sizeGB*30 + sizeGB*480 + sizeGB*45 + 60
	return time.Duration(seconds * float64(time.Second))
}
