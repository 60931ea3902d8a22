package subject

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound   = errors.New("subject not found")
	ErrCodeExists = errors.New("a subject with this code already exists")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string, excludedSubjects []Subject, exec ...core.DBExecutor) error
		CreateSubject(ctx context.Context, sub Subject, exec ...core.DBExecutor) (Subject, error)
		GetSubject(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Subject, error)
		// FilterSubjects applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on the subject name or code.
		FilterSubjects(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Subject, error)
		UpdateSubject(ctx context.Context, sub Subject, exec ...core.DBExecutor) (Subject, error)
		DeleteSubjectsByID(ctx context.Context, exec core.DBExecutor, ids ...string) error
		// HasGrades reports whether any grade has been recorded for the subject.
		HasGrades(ctx context.Context, subjectID string, exec ...core.DBExecutor) (bool, error)
	}

	Service interface {
		CheckUniqueness(code string, exclSubjects ...Subject) error
		Create(ctx context.Context, ns NewSubject) (Subject, error)
		Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]Subject, error)
		GetByID(ctx context.Context, id string) (Subject, error)
		Update(ctx context.Context, id string, us UpdateSubject) (Subject, error)
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

func (svc *service) CheckUniqueness(code string, exclSubjects ...Subject) error {
	if err := svc.repo.CheckCodeUniqueness(context.Background(), code, exclSubjects); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	now := time.Now().UTC()
	sub := Subject{
		ID:         uuid.New().String(),
		Name:       ns.Name,
		Code:       ns.Code,
		GradeLevel: ns.GradeLevel,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if desc := core.CleanString(ns.Description); desc != "" {
		sub.Description = null.StringFrom(desc)
	}
	if ns.IsActive != nil {
		sub.IsActive = *ns.IsActive
	}
	return svc.repo.CreateSubject(ctx, sub)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]Subject, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.FilterSubjects(ctx, *filter, orderings...)
}

func (svc *service) GetByID(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, GetFilter{ID: id})
}

func (svc *service) Update(ctx context.Context, id string, us UpdateSubject) (Subject, error) {
	sub, err := svc.repo.GetSubject(ctx, GetFilter{ID: id})
	if err != nil {
		return Subject{}, err
	}

	if us.Name != "" {
		sub.Name = us.Name
	}
	sub.Code = us.Code
	if desc := core.CleanString(us.Description); desc != "" {
		sub.Description = null.StringFrom(desc)
	}
	if us.GradeLevel != 0 {
		sub.GradeLevel = us.GradeLevel
	}
	if us.IsActive != nil {
		sub.IsActive = *us.IsActive
	}
	sub.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSubject(ctx, sub)
}

// Delete removes subjects. A subject with recorded grades cannot be deleted.
func (svc *service) Delete(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		sub, err := svc.repo.GetSubject(ctx, GetFilter{ID: id})
		if err != nil {
			return err
		}
		hasGrades, err := svc.repo.HasGrades(ctx, sub.ID)
		if err != nil {
			return err
		}
		if hasGrades {
			return core.NewStateError(fmt.Sprintf("subject %q has recorded grades", sub.Name))
		}
	}
	return core.Atomic(ctx, svc.db, nil, func(tx core.DBTransactor) error {
		return svc.repo.DeleteSubjectsByID(ctx, tx, ids...)
	})
}
