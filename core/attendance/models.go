package attendance

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

// Statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusSick    = "sick"
	StatusPermit  = "permit"
)

var Statuses = []string{StatusPresent, StatusAbsent, StatusLate, StatusSick, StatusPermit}

// CanonicalStatus lowers a status and maps legacy spellings to the closed set.
func CanonicalStatus(status string) string {
	status = core.CleanString(status, true /* lower */)
	if status == "permission" || strings.HasPrefix(status, "izin") {
		return StatusPermit
	}
	return status
}

type Attendance struct {
	ID        string      `json:"id"`
	StudentID string      `json:"student_id"`
	SubjectID string      `json:"subject_id"`
	TeacherID string      `json:"teacher_id"` // recording teacher's user ID
	Date      time.Time   `json:"date"`
	Status    string      `json:"status"`
	Notes     null.String `json:"notes"`
	CreatedAt time.Time   `json:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at"` // UTC
}

// NewAttendance contains information needed to record attendance.
// The recording teacher is taken from the authenticated user, never the payload.
type NewAttendance struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
	SubjectID string `json:"subject_id" validate:"required,uuid4"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Status    string `json:"status" validate:"required,oneof=present absent late sick permit"`
	Notes     string `json:"notes"`
}

func (na *NewAttendance) Validate(validate *validator.Validate) error {
	na.Status = CanonicalStatus(na.Status)
	return validate.Struct(na)
}

// UpdateAttendance defines what information may be provided to modify an
// existing Attendance record.
type UpdateAttendance struct {
	Status string `json:"status" validate:"omitempty,oneof=present absent late sick permit"`
	Notes  string `json:"notes"`
}

func (ua *UpdateAttendance) Validate(validate *validator.Validate) error {
	ua.Status = CanonicalStatus(ua.Status)
	return validate.Struct(ua)
}

type QueryFilter struct {
	StudentID string `query:"student"`
	SubjectID string `query:"subject"`
	TeacherID string `query:"teacher"`
	ClassID   string `query:"class"`
	Status    string `query:"status"`
	Month     int    `query:"month"` // 1-12, with Year
	Year      int    `query:"year"`
	DateFrom  string `query:"date_from"` // "2006-01-02"
	DateTo    string `query:"date_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.SubjectID == "" && qf.TeacherID == "" && qf.ClassID == "" &&
		qf.Status == "" && qf.Month == 0 && qf.Year == 0 && qf.DateFrom == "" && qf.DateTo == ""
}

func (qf *QueryFilter) Clean() {
	qf.Status = CanonicalStatus(qf.Status)
}

type GetFilter struct {
	ID string
}
