package schedule

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Days
const (
	Monday    = "monday"
	Tuesday   = "tuesday"
	Wednesday = "wednesday"
	Thursday  = "thursday"
	Friday    = "friday"
	Saturday  = "saturday"
)

var Days = []string{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

type Schedule struct {
	ID           string    `json:"id"`
	ClassID      string    `json:"class_id"`
	SubjectID    string    `json:"subject_id"`
	TeacherID    string    `json:"teacher_id"`
	Day          string    `json:"day"`
	StartTime    string    `json:"start_time"` // "HH:MM"
	EndTime      string    `json:"end_time"`   // "HH:MM"
	AcademicYear string    `json:"academic_year"`
	Semester     int       `json:"semester"` // 1 | 2
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// NewSchedule contains information needed to create a new Schedule.
type NewSchedule struct {
	ClassID      string `json:"class_id" validate:"required,uuid4"`
	SubjectID    string `json:"subject_id" validate:"required,uuid4"`
	TeacherID    string `json:"teacher_id" validate:"required,uuid4"`
	Day          string `json:"day" validate:"required,oneof=monday tuesday wednesday thursday friday saturday"`
	StartTime    string `json:"start_time" validate:"required,clock"`
	EndTime      string `json:"end_time" validate:"required,clock"`
	AcademicYear string `json:"academic_year" validate:"required,academicyear"`
	Semester     int    `json:"semester" validate:"required,oneof=1 2"`
	IsActive     *bool  `json:"is_active"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.Day = core.CleanString(ns.Day, true /* lower */)
	ns.StartTime = core.CleanString(ns.StartTime)
	ns.EndTime = core.CleanString(ns.EndTime)
	ns.AcademicYear = core.CleanString(ns.AcademicYear)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.StartTime >= ns.EndTime {
		return core.NewValidationError(nil, core.FieldError{Field: "end_time", Error: "end time must be after start time"})
	}
	return nil
}

// UpdateSchedule defines what information may be provided to modify an existing Schedule.
type UpdateSchedule struct {
	ClassID      string `json:"class_id" validate:"omitempty,uuid4"`
	SubjectID    string `json:"subject_id" validate:"omitempty,uuid4"`
	TeacherID    string `json:"teacher_id" validate:"omitempty,uuid4"`
	Day          string `json:"day" validate:"omitempty,oneof=monday tuesday wednesday thursday friday saturday"`
	StartTime    string `json:"start_time" validate:"omitempty,clock"`
	EndTime      string `json:"end_time" validate:"omitempty,clock"`
	AcademicYear string `json:"academic_year" validate:"omitempty,academicyear"`
	Semester     int    `json:"semester" validate:"omitempty,oneof=1 2"`
	IsActive     *bool  `json:"is_active"`
}

func (us *UpdateSchedule) Validate(origSched Schedule, validate *validator.Validate) error {
	us.Day = core.CleanString(us.Day, true /* lower */)
	us.AcademicYear = core.CleanString(us.AcademicYear)
	if start := core.CleanString(us.StartTime); start != "" {
		us.StartTime = start
	} else {
		us.StartTime = origSched.StartTime
	}
	if end := core.CleanString(us.EndTime); end != "" {
		us.EndTime = end
	} else {
		us.EndTime = origSched.EndTime
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	if us.StartTime >= us.EndTime {
		return core.NewValidationError(nil, core.FieldError{Field: "end_time", Error: "end time must be after start time"})
	}
	return nil
}

type QueryFilter struct {
	ClassID      string `query:"class"`
	SubjectID    string `query:"subject"`
	TeacherID    string `query:"teacher"`
	Day          string `query:"day"`
	AcademicYear string `query:"academic_year"`
	Semester     int    `query:"semester"`
	IsActive     *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.ClassID == "" && qf.SubjectID == "" && qf.TeacherID == "" && qf.Day == "" &&
		qf.AcademicYear == "" && qf.Semester == 0 && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Day = core.CleanString(qf.Day, true /* lower */)
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
}

type GetFilter struct {
	ID string
}
