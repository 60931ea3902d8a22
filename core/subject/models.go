package subject

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

type Subject struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Code        string      `json:"code"` // unique
	Description null.String `json:"description"`
	GradeLevel  int         `json:"grade_level"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at"` // UTC
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Name        string `json:"name" validate:"required,max=100"`
	Code        string `json:"code" validate:"required,max=20,alphanum_"`
	Description string `json:"description"`
	GradeLevel  int    `json:"grade_level" validate:"required,min=1,max=6"`
	IsActive    *bool  `json:"is_active"`
}

func (ns *NewSubject) Validate(validate *validator.Validate, svc Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code, true /* lower */)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ns.Code)
}

// UpdateSubject defines what information may be provided to modify an existing Subject.
type UpdateSubject struct {
	Name        string `json:"name" validate:"omitempty,max=100"`
	Code        string `json:"code" validate:"omitempty,max=20,alphanum_"`
	Description string `json:"description"`
	GradeLevel  int    `json:"grade_level" validate:"omitempty,min=1,max=6"`
	IsActive    *bool  `json:"is_active"`
}

func (us *UpdateSubject) Validate(origSub Subject, validate *validator.Validate, svc Service) error {
	us.Name = core.CleanString(us.Name)
	if code := core.CleanString(us.Code, true /* lower */); code != "" {
		us.Code = code
	} else {
		us.Code = origSub.Code
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckUniqueness(us.Code, origSub)
}

type QueryFilter struct {
	Search     string `query:"search"` // name or code
	GradeLevel int    `query:"grade_level"`
	IsActive   *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.GradeLevel == 0 && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type GetFilter struct {
	ID   string
	Code string
}
