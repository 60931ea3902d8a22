package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

// Statuses
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusGraduated = "graduated"
)

type Student struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	StudentID     string      `json:"student_id"` // NIS
	NISN          null.String `json:"nisn"`
	ClassID       string      `json:"class_id"`
	ParentName    string      `json:"parent_name"`
	ParentPhone   string      `json:"parent_phone"`
	ParentEmail   null.String `json:"parent_email"`
	ParentAddress null.String `json:"parent_address"`
	EntryDate     time.Time   `json:"entry_date"`
	Status        string      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"` // UTC
	UpdatedAt     time.Time   `json:"updated_at"` // UTC

	User *user.User `json:"user,omitempty"` // populated on joined fetches
}

func (st *Student) IsActive() bool { return st.Status == StatusActive }

// NewStudent contains information needed to enroll a new Student.
// The account and the profile are created together in one transaction.
type NewStudent struct {
	User user.NewUser `json:"user"`

	StudentID     string `json:"student_id" validate:"required,max=20"`
	NISN          string `json:"nisn" validate:"omitempty,len=10,numeric"`
	ClassID       string `json:"class_id" validate:"required,uuid4"`
	ParentName    string `json:"parent_name" validate:"required"`
	ParentPhone   string `json:"parent_phone" validate:"required,max=20"`
	ParentEmail   string `json:"parent_email" validate:"omitempty,email"`
	ParentAddress string `json:"parent_address"`
	EntryDate     string `json:"entry_date" validate:"omitempty,datetime=2006-01-02"`
	Status        string `json:"status" validate:"omitempty,oneof=active inactive graduated"`
}

func (ns *NewStudent) Validate(validate *validator.Validate, svc Service, usrSvc user.Service) error {
	ns.StudentID = core.CleanString(ns.StudentID)
	ns.NISN = core.CleanString(ns.NISN)
	ns.ParentName = core.CleanString(ns.ParentName)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
	ns.User.Roles = user.StudentRoles

	if err := ns.User.Validate(validate, usrSvc); err != nil {
		return err
	}
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ns.StudentID, ns.NISN)
}

// UpdateStudent defines what information may be provided to modify an
// existing Student. User account fields ride along in one transaction.
type UpdateStudent struct {
	User *user.UpdateUser `json:"user"`

	StudentID     string `json:"student_id" validate:"omitempty,max=20"`
	NISN          string `json:"nisn" validate:"omitempty,len=10,numeric"`
	ClassID       string `json:"class_id" validate:"omitempty,uuid4"`
	ParentName    string `json:"parent_name"`
	ParentPhone   string `json:"parent_phone" validate:"omitempty,max=20"`
	ParentEmail   string `json:"parent_email" validate:"omitempty,email"`
	ParentAddress string `json:"parent_address"`
	EntryDate     string `json:"entry_date" validate:"omitempty,datetime=2006-01-02"`
	Status        string `json:"status" validate:"omitempty,oneof=active inactive graduated"`
}

func (us *UpdateStudent) Validate(origStd Student, validate *validator.Validate, svc Service, usrSvc user.Service) error {
	if sid := core.CleanString(us.StudentID); sid != "" {
		us.StudentID = sid
	} else {
		us.StudentID = origStd.StudentID
	}
	us.NISN = core.CleanString(us.NISN)
	us.ParentEmail = core.CleanString(us.ParentEmail, true /* lower */)

	if us.User != nil && origStd.User != nil {
		if err := us.User.Validate(*origStd.User, validate, usrSvc); err != nil {
			return err
		}
	}
	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckUniqueness(us.StudentID, us.NISN, origStd)
}

type QueryFilter struct {
	Search  string `query:"search"` // name, NIS or NISN
	ClassID string `query:"class"`
	Status  string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.ClassID == "" && qf.Status == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter fetches a single Student by one of its unique attributes.
type GetFilter struct {
	ID        string
	UserID    string
	StudentID string
}
