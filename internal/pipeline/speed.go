// ABOUTME: Adaptive playback speed controller
// ABOUTME: Maps queue depth to a bounded speed-up factor
package pipeline

// Speed computes the playback speed for the current queue depth. Below
// threshold the pipeline plays at unity. At or above it, the speed is
// chosen so the backlog would clear in targetCatchupSec seconds if the
// producer keeps feeding at real time:
//
//	speed = (depth + window) / window,  window = chunksPerSecond * targetCatchupSec
//
// The result is capped at maxSpeed. The curve is continuous at the
// threshold only when the threshold backlog is small relative to the
// window; the drain loop's hysteresis absorbs the step.
func Speed(depth, threshold int, targetCatchupSec, maxSpeed, chunksPerSecond float64) float64 {
	if depth < threshold {
		return 1.0
	}
	window := chunksPerSecond * targetCatchupSec
	speed := (float64(depth) + window) / window
	if speed > maxSpeed {
		return maxSpeed
	}
	return speed
}
