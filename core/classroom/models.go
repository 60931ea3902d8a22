package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
)

type ClassRoom struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Grade        int         `json:"grade"`
	TeacherID    null.String `json:"teacher_id"` // homeroom teacher's user ID
	MaxStudents  int         `json:"max_students"`
	AcademicYear string      `json:"academic_year"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
}

// Roster is a class with its enrolled students.
type Roster struct {
	ClassRoom
	Students    []student.Student `json:"students"`
	ActiveCount int               `json:"active_count"`
}

// NewClassRoom contains information needed to create a new ClassRoom.
type NewClassRoom struct {
	Name         string `json:"name" validate:"required,max=100"`
	Grade        int    `json:"grade" validate:"required,min=1,max=6"`
	TeacherID    string `json:"teacher_id" validate:"omitempty,uuid4"`
	MaxStudents  int    `json:"max_students" validate:"required,min=10,max=50"`
	AcademicYear string `json:"academic_year" validate:"required,academicyear"`
	IsActive     *bool  `json:"is_active"`
}

func (nc *NewClassRoom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.AcademicYear = core.CleanString(nc.AcademicYear)
	return validate.Struct(nc)
}

// UpdateClassRoom defines what information may be provided to modify an
// existing ClassRoom. TeacherID semantics: nil leaves the homeroom teacher
// untouched, "" removes them, a uuid re-assigns.
type UpdateClassRoom struct {
	Name         string  `json:"name" validate:"omitempty,max=100"`
	Grade        int     `json:"grade" validate:"omitempty,min=1,max=6"`
	TeacherID    *string `json:"teacher_id" validate:"omitempty,uuid4"`
	MaxStudents  int     `json:"max_students" validate:"omitempty,min=10,max=50"`
	AcademicYear string  `json:"academic_year" validate:"omitempty,academicyear"`
	IsActive     *bool   `json:"is_active"`
}

func (uc *UpdateClassRoom) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.AcademicYear = core.CleanString(uc.AcademicYear)
	if uc.TeacherID != nil && *uc.TeacherID == "" {
		// removal request: skip the uuid4 check
		return validate.StructExcept(uc, "TeacherID")
	}
	return validate.Struct(uc)
}

// MoveStudents re-assigns students to this class, subject to capacity.
type MoveStudents struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,uuid4"`
}

func (ms MoveStudents) Validate(validate *validator.Validate) error {
	return validate.Struct(ms)
}

type QueryFilter struct {
	Search       string `query:"search"`
	Grade        int    `query:"grade"`
	TeacherID    string `query:"teacher"`
	AcademicYear string `query:"academic_year"`
	IsActive     *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Grade == 0 && qf.TeacherID == "" && qf.AcademicYear == "" && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
}

type GetFilter struct {
	ID string
}
