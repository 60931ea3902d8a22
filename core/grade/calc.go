package grade

import "github.com/trezcool/shule/core"

// Score weights of the final grade.
const (
	dailyWeight   = 0.30
	midtermWeight = 0.35
	finalWeight   = 0.35

	// PassingGrade is the minimum final grade considered a pass.
	PassingGrade = 70.0
)

// Calculate derives the final grade from the three component scores.
// Missing scores count as 0; the result is rounded to 2 decimal places.
func Calculate(daily, midterm, final float64) float64 {
	return core.Round2(dailyWeight*daily + midtermWeight*midterm + finalWeight*final)
}

// Letter maps a final grade to its letter.
func Letter(finalGrade float64) string {
	switch {
	case finalGrade >= 90:
		return "A"
	case finalGrade >= 80:
		return "B"
	case finalGrade >= 70:
		return "C"
	case finalGrade >= 60:
		return "D"
	default:
		return "E"
	}
}

// Passed reports whether a final grade is a pass.
func Passed(finalGrade float64) bool {
	return finalGrade >= PassingGrade
}
