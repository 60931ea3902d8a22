package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound = errors.New("schedule not found")
)

type (
	Repository interface {
		CreateSchedule(ctx context.Context, sched Schedule, exec ...core.DBExecutor) (Schedule, error)
		GetSchedule(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Schedule, error)
		// FilterSchedules applies AND operation on available QueryFilter fields.
		FilterSchedules(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Schedule, error)
		UpdateSchedule(ctx context.Context, sched Schedule, exec ...core.DBExecutor) (Schedule, error)
		DeleteSchedulesByID(ctx context.Context, exec core.DBExecutor, ids ...string) error
		// ConflictCandidates fetches the schedules in the candidate's conflict
		// scope: same (day, academic year, semester), same class or teacher.
		ConflictCandidates(ctx context.Context, sched Schedule, exec ...core.DBExecutor) ([]Schedule, error)
	}

	Service interface {
		Create(ctx context.Context, ns NewSchedule) (Schedule, error)
		Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]Schedule, error)
		GetByID(ctx context.Context, id string) (Schedule, error)
		Update(ctx context.Context, id string, us UpdateSchedule) (Schedule, error)
		Delete(ctx context.Context, ids ...string) error
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

// Create inserts a schedule after checking for overlaps. The check and the
// insert run in one serializable transaction so two concurrent writes cannot
// both pass it.
func (svc *service) Create(ctx context.Context, ns NewSchedule) (Schedule, error) {
	now := time.Now().UTC()
	sched := Schedule{
		ID:           uuid.New().String(),
		ClassID:      ns.ClassID,
		SubjectID:    ns.SubjectID,
		TeacherID:    ns.TeacherID,
		Day:          ns.Day,
		StartTime:    ns.StartTime,
		EndTime:      ns.EndTime,
		AcademicYear: ns.AcademicYear,
		Semester:     ns.Semester,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if ns.IsActive != nil {
		sched.IsActive = *ns.IsActive
	}

	err := core.Serializable(ctx, svc.db, func(tx core.DBTransactor) error {
		if err := svc.checkConflict(ctx, sched, tx); err != nil {
			return err
		}
		var err error
		sched, err = svc.repo.CreateSchedule(ctx, sched, tx)
		return err
	})
	if err != nil {
		return Schedule{}, err
	}
	return sched, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]Schedule, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.FilterSchedules(ctx, *filter, orderings...)
}

func (svc *service) GetByID(ctx context.Context, id string) (Schedule, error) {
	return svc.repo.GetSchedule(ctx, GetFilter{ID: id})
}

func (svc *service) Update(ctx context.Context, id string, us UpdateSchedule) (Schedule, error) {
	sched, err := svc.repo.GetSchedule(ctx, GetFilter{ID: id})
	if err != nil {
		return Schedule{}, err
	}

	if us.ClassID != "" {
		sched.ClassID = us.ClassID
	}
	if us.SubjectID != "" {
		sched.SubjectID = us.SubjectID
	}
	if us.TeacherID != "" {
		sched.TeacherID = us.TeacherID
	}
	if us.Day != "" {
		sched.Day = us.Day
	}
	sched.StartTime = us.StartTime
	sched.EndTime = us.EndTime
	if us.AcademicYear != "" {
		sched.AcademicYear = us.AcademicYear
	}
	if us.Semester != 0 {
		sched.Semester = us.Semester
	}
	if us.IsActive != nil {
		sched.IsActive = *us.IsActive
	}
	sched.UpdatedAt = time.Now().UTC()

	err = core.Serializable(ctx, svc.db, func(tx core.DBTransactor) error {
		if err := svc.checkConflict(ctx, sched, tx); err != nil {
			return err
		}
		var err error
		sched, err = svc.repo.UpdateSchedule(ctx, sched, tx)
		return err
	})
	if err != nil {
		return Schedule{}, err
	}
	return sched, nil
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return core.Atomic(ctx, svc.db, nil, func(tx core.DBTransactor) error {
		return svc.repo.DeleteSchedulesByID(ctx, tx, ids...)
	})
}

func (svc *service) checkConflict(ctx context.Context, sched Schedule, exec core.DBExecutor) error {
	if !sched.IsActive {
		return nil
	}
	candidates, err := svc.repo.ConflictCandidates(ctx, sched, exec)
	if err != nil {
		return err
	}
	if c := FindConflict(sched, candidates); c != nil {
		return core.NewConflictError(fmt.Sprintf("schedule overlaps an existing one on %s %s-%s", c.Day, c.StartTime, c.EndTime))
	}
	return nil
}
