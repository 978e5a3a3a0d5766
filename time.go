package accounts

import "time"

// IsWithinThresholdPeriod checks if the given time is within the threshold
func IsWithinThresholdPeriod(t time.Time, pattern string) (bool, error) {
	duration, err := time.ParseDuration(pattern)
	if err != nil {
		return false, err
	}

	return IsWithinThresholdAt(time.Now(), t, duration), nil
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(t time.Time, pattern string) (bool, error) {
	valid, err := IsWithinThresholdPeriod(t, pattern)
	if err != nil {
		return false, err
	}

	return !valid, nil
}

// IsWithinThresholdAt reports whether t happened less than d before now.
// A t exactly d before now is outside the threshold.
func IsWithinThresholdAt(now, t time.Time, d time.Duration) bool {
	threshold := now.Add(-d)
	return t.After(threshold)
}
