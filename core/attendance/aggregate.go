package attendance

import "github.com/trezcool/shule/core"

// Summary is the per-status breakdown of a set of attendance records.
// AbsentTotal groups absent, sick and permit; late counts toward Total but
// not toward Present.
type Summary struct {
	Total       int     `json:"total"`
	Present     int     `json:"present"`
	Absent      int     `json:"absent"`
	Late        int     `json:"late"`
	Sick        int     `json:"sick"`
	Permit      int     `json:"permit"`
	AbsentTotal int     `json:"absent_total"`
	Percentage  float64 `json:"percentage"`
}

// Summarize tallies records into a Summary. The percentage is
// round2(100*present/total), 0 when there are no records.
func Summarize(records []Attendance) Summary {
	var s Summary
	for _, rec := range records {
		s.Total++
		switch rec.Status {
		case StatusPresent:
			s.Present++
		case StatusAbsent:
			s.Absent++
		case StatusLate:
			s.Late++
		case StatusSick:
			s.Sick++
		case StatusPermit:
			s.Permit++
		}
	}
	s.AbsentTotal = s.Absent + s.Sick + s.Permit
	if s.Total > 0 {
		s.Percentage = core.Round2(100 * float64(s.Present) / float64(s.Total))
	}
	return s
}
