package grade

import "testing"

func TestCalculate(t *testing.T) {
	tests := []struct {
		name                  string
		daily, midterm, final float64
		want                  float64
	}{
		{name: "all zero", want: 0},
		{name: "all perfect", daily: 100, midterm: 100, final: 100, want: 100},
		{name: "weighted mix", daily: 80, midterm: 90, final: 70, want: 80},
		{name: "rounding", daily: 85.5, midterm: 77.25, final: 91.75, want: 84.8},
		{name: "daily only", daily: 100, want: 30},
		{name: "midterm only", midterm: 100, want: 35},
		{name: "final only", final: 100, want: 35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Calculate(tt.daily, tt.midterm, tt.final); got != tt.want {
				t.Errorf("Calculate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLetter(t *testing.T) {
	tests := []struct {
		grade float64
		want  string
	}{
		{100, "A"},
		{90, "A"},
		{89.99, "B"},
		{80, "B"},
		{79.99, "C"},
		{70, "C"},
		{69.99, "D"},
		{60, "D"},
		{59.99, "E"},
		{0, "E"},
	}
	for _, tt := range tests {
		if got := Letter(tt.grade); got != tt.want {
			t.Errorf("Letter(%v) = %s, want %s", tt.grade, got, tt.want)
		}
	}
}

func TestPassed(t *testing.T) {
	tests := []struct {
		grade float64
		want  bool
	}{
		{70, true},
		{100, true},
		{69.99, false},
		{0, false},
	}
	for _, tt := range tests {
		if got := Passed(tt.grade); got != tt.want {
			t.Errorf("Passed(%v) = %v, want %v", tt.grade, got, tt.want)
		}
	}
}
