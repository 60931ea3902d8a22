package attendance

import "testing"

func recs(statuses ...string) []Attendance {
	out := make([]Attendance, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, Attendance{Status: s})
	}
	return out
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		recs []Attendance
		want Summary
	}{
		{
			name: "no records",
			want: Summary{},
		},
		{
			name: "all present",
			recs: recs(StatusPresent, StatusPresent),
			want: Summary{Total: 2, Present: 2, Percentage: 100},
		},
		{
			name: "three of four present",
			recs: recs(StatusPresent, StatusPresent, StatusPresent, StatusAbsent),
			want: Summary{Total: 4, Present: 3, Absent: 1, AbsentTotal: 1, Percentage: 75},
		},
		{
			name: "late counts toward total not present",
			recs: recs(StatusPresent, StatusLate),
			want: Summary{Total: 2, Present: 1, Late: 1, Percentage: 50},
		},
		{
			name: "sick and permit group as absences",
			recs: recs(StatusPresent, StatusAbsent, StatusSick, StatusPermit),
			want: Summary{Total: 4, Present: 1, Absent: 1, Sick: 1, Permit: 1, AbsentTotal: 3, Percentage: 25},
		},
		{
			name: "rounding",
			recs: recs(StatusPresent, StatusPresent, StatusAbsent),
			want: Summary{Total: 3, Present: 2, Absent: 1, AbsentTotal: 1, Percentage: 66.67},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.recs); got != tt.want {
				t.Errorf("Summarize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCanonicalStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"present", StatusPresent},
		{" Present ", StatusPresent},
		{"LATE", StatusLate},
		{"permission", StatusPermit},
		{"izin", StatusPermit},
		{"permit", StatusPermit},
		{"sick", StatusSick},
	}
	for _, tt := range tests {
		if got := CanonicalStatus(tt.in); got != tt.want {
			t.Errorf("CanonicalStatus(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
