package grade

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
	ErrNotFound = errors.New("grade not found")
)

type (
	Repository interface {
		CreateGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		GetGrade(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Grade, error)
		// FilterGrades applies AND operation on available QueryFilter fields.
		FilterGrades(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Grade, error)
		UpdateGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		DeleteGradesByID(ctx context.Context, exec core.DBExecutor, ids ...string) error
		// AverageFinalGrade computes the mean stored final grade over the filter scope; 0 when empty.
		AverageFinalGrade(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) (float64, error)
	}

	Service interface {
		Create(ctx context.Context, teacherID string, ng NewGrade) (Grade, error)
		Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]Grade, error)
		GetByID(ctx context.Context, id string) (Grade, error)
		Update(ctx context.Context, id string, ug UpdateGrade) (Grade, error)
		Delete(ctx context.Context, ids ...string) error
		Average(ctx context.Context, filter QueryFilter) (float64, error)
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

// Create records a grade for the given teacher. The stored final grade and
// letter are recomputed here, whatever the client sent.
func (svc *service) Create(ctx context.Context, teacherID string, ng NewGrade) (Grade, error) {
	now := time.Now().UTC()
	g := Grade{
		ID:           uuid.New().String(),
		StudentID:    ng.StudentID,
		SubjectID:    ng.SubjectID,
		TeacherID:    teacherID,
		Semester:     ng.Semester,
		AcademicYear: ng.AcademicYear,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	applyScores(&g, ng.DailyScore, ng.MidtermScore, ng.FinalScore, ng.Notes)
	g.Recompute()
	return svc.repo.CreateGrade(ctx, g)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]Grade, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.FilterGrades(ctx, *filter, orderings...)
}

func (svc *service) GetByID(ctx context.Context, id string) (Grade, error) {
	return svc.repo.GetGrade(ctx, GetFilter{ID: id})
}

func (svc *service) Update(ctx context.Context, id string, ug UpdateGrade) (Grade, error) {
	g, err := svc.repo.GetGrade(ctx, GetFilter{ID: id})
	if err != nil {
		return Grade{}, err
	}

	if ug.Semester != 0 {
		g.Semester = ug.Semester
	}
	if ug.AcademicYear != "" {
		g.AcademicYear = ug.AcademicYear
	}
	applyScores(&g, ug.DailyScore, ug.MidtermScore, ug.FinalScore, ug.Notes)
	g.Recompute()
	g.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGrade(ctx, g)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return core.Atomic(ctx, svc.db, nil, func(tx core.DBTransactor) error {
		return svc.repo.DeleteGradesByID(ctx, tx, ids...)
	})
}

func (svc *service) Average(ctx context.Context, filter QueryFilter) (float64, error) {
	avg, err := svc.repo.AverageFinalGrade(ctx, filter)
	if err != nil {
		return 0, err
	}
	return core.Round2(avg), nil
}

func applyScores(g *Grade, daily, midterm, final *float64, notes string) {
	if daily != nil {
		g.DailyScore = null.Float64From(*daily)
	}
	if midterm != nil {
		g.MidtermScore = null.Float64From(*midterm)
	}
	if final != nil {
		g.FinalScore = null.Float64From(*final)
	}
	if notes = core.CleanString(notes); notes != "" {
		g.Notes = null.StringFrom(notes)
	}
}
