package core

// Mood score bounds.
const (
	MoodMin = -2
	MoodMax = 2
)

// moodBias maps a mood score to the Happy Money multiplier. The linear
// bias table is the canonical policy; a clamped-scaling variant existed
// historically but produces irreconcilable values and is superseded.
var moodBias = map[int]float64{
	-2: -1.0,
	-1: -0.5,
	0:  0.0,
	1:  0.5,
	2:  1.0,
}

// moodLabels maps a mood score to its fixed human-readable label.
var moodLabels = map[int]string{
	-2: "terrible",
	-1: "bad",
	0:  "neutral",
	1:  "good",
	2:  "great",
}

// HappyAmount computes the Happy Money valuation of a transaction:
// amount scaled by the mood bias. Pure and total over the whole input
// domain; unknown scores fall back to a zero bias because scores are
// validated to [-2, 2] before reaching this layer.
func HappyAmount(amount float64, moodScore int) float64 {
	return amount * moodBias[moodScore]
}

// MoodLabel returns the display label for a mood score, "unknown" for
// anything outside the valid range.
func MoodLabel(score int) string {
	if label, ok := moodLabels[score]; ok {
		return label
	}
	return "unknown"
}
