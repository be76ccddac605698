package wave

// Performance maps an elbow angle onto the target range as a percentage:
// 0 at MinAngle, 100 at MaxAngle. Angles outside the range are not clamped.
func (c Config) Performance(angle float64) float64 {
	return (angle - c.MinAngle) / (c.MaxAngle - c.MinAngle) * 100.0
}

// WavePercentage is the live progress of a repetition. Moving outward covers
// the first half (0-50), moving inward or holding still covers the second
// half (50-100).
func (c Config) WavePercentage(angle float64, direction int) float64 {
	span := c.MaxAngle - c.MinAngle
	if direction > 0 {
		return (angle - c.MinAngle) / span * 50.0
	}
	return 50.0 + (c.MaxAngle-angle)/span*50.0
}
