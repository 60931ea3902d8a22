package grade

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

type Grade struct {
	ID           string       `json:"id"`
	StudentID    string       `json:"student_id"`
	SubjectID    string       `json:"subject_id"`
	TeacherID    string       `json:"teacher_id"` // recording teacher's user ID
	Semester     int          `json:"semester"`   // 1 | 2
	AcademicYear string       `json:"academic_year"`
	DailyScore   null.Float64 `json:"daily_score"`
	MidtermScore null.Float64 `json:"midterm_score"`
	FinalScore   null.Float64 `json:"final_score"`
	FinalGrade   float64      `json:"final_grade"`  // derived, never client-supplied
	GradeLetter  string       `json:"grade_letter"` // derived, never client-supplied
	Notes        null.String  `json:"notes"`
	CreatedAt    time.Time    `json:"created_at"` // UTC
	UpdatedAt    time.Time    `json:"updated_at"` // UTC
}

// Recompute re-derives FinalGrade and GradeLetter from the component scores.
// Always called before persisting so stored values can never drift.
func (g *Grade) Recompute() {
	g.FinalGrade = Calculate(g.DailyScore.Float64, g.MidtermScore.Float64, g.FinalScore.Float64)
	g.GradeLetter = Letter(g.FinalGrade)
}

func (g *Grade) Passed() bool { return Passed(g.FinalGrade) }

// NewGrade contains information needed to record a new Grade.
// The recording teacher is taken from the authenticated user, never the payload.
type NewGrade struct {
	StudentID    string   `json:"student_id" validate:"required,uuid4"`
	SubjectID    string   `json:"subject_id" validate:"required,uuid4"`
	Semester     int      `json:"semester" validate:"required,oneof=1 2"`
	AcademicYear string   `json:"academic_year" validate:"required,academicyear"`
	DailyScore   *float64 `json:"daily_score" validate:"omitempty,min=0,max=100"`
	MidtermScore *float64 `json:"midterm_score" validate:"omitempty,min=0,max=100"`
	FinalScore   *float64 `json:"final_score" validate:"omitempty,min=0,max=100"`
	Notes        string   `json:"notes"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.AcademicYear = core.CleanString(ng.AcademicYear)
	return validate.Struct(ng)
}

// UpdateGrade defines what information may be provided to modify an existing Grade.
type UpdateGrade struct {
	Semester     int      `json:"semester" validate:"omitempty,oneof=1 2"`
	AcademicYear string   `json:"academic_year" validate:"omitempty,academicyear"`
	DailyScore   *float64 `json:"daily_score" validate:"omitempty,min=0,max=100"`
	MidtermScore *float64 `json:"midterm_score" validate:"omitempty,min=0,max=100"`
	FinalScore   *float64 `json:"final_score" validate:"omitempty,min=0,max=100"`
	Notes        string   `json:"notes"`
}

func (ug *UpdateGrade) Validate(validate *validator.Validate) error {
	ug.AcademicYear = core.CleanString(ug.AcademicYear)
	return validate.Struct(ug)
}

type QueryFilter struct {
	StudentID    string `query:"student"`
	SubjectID    string `query:"subject"`
	TeacherID    string `query:"teacher"`
	ClassID      string `query:"class"`
	Semester     int    `query:"semester"`
	AcademicYear string `query:"academic_year"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.SubjectID == "" && qf.TeacherID == "" && qf.ClassID == "" &&
		qf.Semester == 0 && qf.AcademicYear == ""
}

func (qf *QueryFilter) Clean() {
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
}

type GetFilter struct {
	ID string
}
