package schedule

// Overlaps reports whether two [start, end) wall-clock intervals overlap.
// Times are zero-padded "HH:MM" strings so lexicographic order is time order;
// intervals that merely touch do not overlap.
func Overlaps(start1, end1, start2, end2 string) bool {
	return start1 < end2 && start2 < end1
}

// FindConflict returns the first existing schedule that conflicts with the
// candidate, or nil. Conflict scope: same (day, academic year, semester) and
// same class or same teacher; the candidate itself and inactive schedules are
// ignored.
func FindConflict(candidate Schedule, existing []Schedule) *Schedule {
	for i := range existing {
		other := existing[i]
		if other.ID == candidate.ID || !other.IsActive {
			continue
		}
		if other.Day != candidate.Day ||
			other.AcademicYear != candidate.AcademicYear ||
			other.Semester != candidate.Semester {
			continue
		}
		if other.ClassID != candidate.ClassID && other.TeacherID != candidate.TeacherID {
			continue
		}
		if Overlaps(candidate.StartTime, candidate.EndTime, other.StartTime, other.EndTime) {
			return &other
		}
	}
	return nil
}
