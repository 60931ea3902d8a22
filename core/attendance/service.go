package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound        = errors.New("attendance record not found")
	ErrAlreadyRecorded = errors.New("attendance already recorded for this student, subject and date")
)

type (
	Repository interface {
		// CreateAttendance returns ErrAlreadyRecorded when a record already
		// exists for the same (student, subject, date).
		CreateAttendance(ctx context.Context, att Attendance, exec ...core.DBExecutor) (Attendance, error)
		GetAttendance(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Attendance, error)
		// FilterAttendances applies AND operation on available QueryFilter fields.
		FilterAttendances(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Attendance, error)
		UpdateAttendance(ctx context.Context, att Attendance, exec ...core.DBExecutor) (Attendance, error)
		DeleteAttendancesByID(ctx context.Context, exec core.DBExecutor, ids ...string) error
	}

	Service interface {
		Record(ctx context.Context, teacherID string, na NewAttendance) (Attendance, error)
		Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]Attendance, error)
		GetByID(ctx context.Context, id string) (Attendance, error)
		Update(ctx context.Context, id string, ua UpdateAttendance) (Attendance, error)
		Delete(ctx context.Context, ids ...string) error
		Summary(ctx context.Context, filter QueryFilter) (Summary, error)
	}

	service struct {
		db   core.DB
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository) *service {
	return &service{db: db, repo: repo}
}

// Record stores an attendance record for the given teacher. One record per
// (student, subject, date); a duplicate is a conflict, not a validation error.
func (svc *service) Record(ctx context.Context, teacherID string, na NewAttendance) (Attendance, error) {
	date, err := time.Parse("2006-01-02", na.Date)
	if err != nil {
		return Attendance{}, core.NewValidationError(err, core.FieldError{Field: "date", Error: "invalid date"})
	}

	now := time.Now().UTC()
	att := Attendance{
		ID:        uuid.New().String(),
		StudentID: na.StudentID,
		SubjectID: na.SubjectID,
		TeacherID: teacherID,
		Date:      date,
		Status:    CanonicalStatus(na.Status),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if notes := core.CleanString(na.Notes); notes != "" {
		att.Notes = null.StringFrom(notes)
	}

	att, err = svc.repo.CreateAttendance(ctx, att)
	if err != nil {
		if errors.Cause(err) == ErrAlreadyRecorded {
			return Attendance{}, core.NewConflictError(ErrAlreadyRecorded.Error())
		}
		return Attendance{}, err
	}
	return att, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]Attendance, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.FilterAttendances(ctx, *filter, orderings...)
}

func (svc *service) GetByID(ctx context.Context, id string) (Attendance, error) {
	return svc.repo.GetAttendance(ctx, GetFilter{ID: id})
}

func (svc *service) Update(ctx context.Context, id string, ua UpdateAttendance) (Attendance, error) {
	att, err := svc.repo.GetAttendance(ctx, GetFilter{ID: id})
	if err != nil {
		return Attendance{}, err
	}

	if ua.Status != "" {
		att.Status = CanonicalStatus(ua.Status)
	}
	if notes := core.CleanString(ua.Notes); notes != "" {
		att.Notes = null.StringFrom(notes)
	}
	att.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAttendance(ctx, att)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return core.Atomic(ctx, svc.db, nil, func(tx core.DBTransactor) error {
		return svc.repo.DeleteAttendancesByID(ctx, tx, ids...)
	})
}

// Summary aggregates the records matching the filter.
func (svc *service) Summary(ctx context.Context, filter QueryFilter) (Summary, error) {
	records, err := svc.repo.FilterAttendances(ctx, filter)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(records), nil
}
