package classroom

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
)

var (
	// errors
	ErrNotFound = errors.New("class not found")
)

type (
	Repository interface {
		CreateClassRoom(ctx context.Context, cls ClassRoom, exec ...core.DBExecutor) (ClassRoom, error)
		GetClassRoom(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (ClassRoom, error)
		// FilterClassRooms applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on the class name.
		FilterClassRooms(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]ClassRoom, error)
		UpdateClassRoom(ctx context.Context, cls ClassRoom, exec ...core.DBExecutor) (ClassRoom, error)
		DeleteClassRoomsByID(ctx context.Context, exec core.DBExecutor, ids ...string) error
		// HasActiveHomeroom reports whether the teacher is already homeroom of
		// another active class in the same grade and academic year.
		HasActiveHomeroom(ctx context.Context, teacherID string, grade int, academicYear, excludedClassID string, exec ...core.DBExecutor) (bool, error)
	}

	Service interface {
		Create(ctx context.Context, nc NewClassRoom) (ClassRoom, error)
		Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]ClassRoom, error)
		GetByID(ctx context.Context, id string) (ClassRoom, error)
		Update(ctx context.Context, id string, uc UpdateClassRoom) (ClassRoom, error)
		Delete(ctx context.Context, ids ...string) error
		GetRoster(ctx context.Context, id string) (Roster, error)
		MoveStudents(ctx context.Context, classID string, studentIDs ...string) error
	}

	service struct {
		db      core.DB
		repo    Repository
		stdRepo student.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, stdRepo student.Repository) *service {
	return &service{
		db:      db,
		repo:    repo,
		stdRepo: stdRepo,
	}
}

// Create creates a class. The homeroom rule (one active class per teacher per
// grade and academic year) is checked inside a serializable transaction; a
// partial unique index backs it up at the storage level.
func (svc *service) Create(ctx context.Context, nc NewClassRoom) (ClassRoom, error) {
	now := time.Now().UTC()
	cls := ClassRoom{
		ID:           uuid.New().String(),
		Name:         nc.Name,
		Grade:        nc.Grade,
		MaxStudents:  nc.MaxStudents,
		AcademicYear: nc.AcademicYear,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if nc.TeacherID != "" {
		cls.TeacherID = null.StringFrom(nc.TeacherID)
	}
	if nc.IsActive != nil {
		cls.IsActive = *nc.IsActive
	}

	err := core.Serializable(ctx, svc.db, func(tx core.DBTransactor) error {
		if err := svc.checkHomeroom(ctx, cls, tx); err != nil {
			return err
		}
		var err error
		cls, err = svc.repo.CreateClassRoom(ctx, cls, tx)
		return err
	})
	if err != nil {
		return ClassRoom{}, err
	}
	return cls, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]ClassRoom, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.FilterClassRooms(ctx, *filter, orderings...)
}

func (svc *service) GetByID(ctx context.Context, id string) (ClassRoom, error) {
	return svc.repo.GetClassRoom(ctx, GetFilter{ID: id})
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateClassRoom) (ClassRoom, error) {
	cls, err := svc.repo.GetClassRoom(ctx, GetFilter{ID: id})
	if err != nil {
		return ClassRoom{}, err
	}

	if uc.Name != "" {
		cls.Name = uc.Name
	}
	if uc.Grade != 0 {
		cls.Grade = uc.Grade
	}
	if uc.MaxStudents != 0 {
		cls.MaxStudents = uc.MaxStudents
	}
	if uc.AcademicYear != "" {
		cls.AcademicYear = uc.AcademicYear
	}
	if uc.IsActive != nil {
		cls.IsActive = *uc.IsActive
	}
	if uc.TeacherID != nil {
		if *uc.TeacherID == "" {
			cls.TeacherID = null.String{}
		} else {
			cls.TeacherID = null.StringFrom(*uc.TeacherID)
		}
	}
	cls.UpdatedAt = time.Now().UTC()

	err = core.Serializable(ctx, svc.db, func(tx core.DBTransactor) error {
		if err := svc.checkHomeroom(ctx, cls, tx); err != nil {
			return err
		}
		var err error
		cls, err = svc.repo.UpdateClassRoom(ctx, cls, tx)
		return err
	})
	if err != nil {
		return ClassRoom{}, err
	}
	return cls, nil
}

// Delete removes classes. A class that still has active students cannot be deleted.
func (svc *service) Delete(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		cls, err := svc.repo.GetClassRoom(ctx, GetFilter{ID: id})
		if err != nil {
			return err
		}
		count, err := svc.stdRepo.CountActiveStudentsByClass(ctx, cls.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return core.NewStateError(fmt.Sprintf("class %q still has %d active student(s)", cls.Name, count))
		}
	}
	return core.Atomic(ctx, svc.db, nil, func(tx core.DBTransactor) error {
		return svc.repo.DeleteClassRoomsByID(ctx, tx, ids...)
	})
}

func (svc *service) GetRoster(ctx context.Context, id string) (Roster, error) {
	cls, err := svc.repo.GetClassRoom(ctx, GetFilter{ID: id})
	if err != nil {
		return Roster{}, err
	}
	students, err := svc.stdRepo.FilterStudents(ctx, student.QueryFilter{ClassID: cls.ID})
	if err != nil {
		return Roster{}, err
	}
	roster := Roster{ClassRoom: cls, Students: students}
	for _, std := range students {
		if std.IsActive() {
			roster.ActiveCount++
		}
	}
	return roster, nil
}

// MoveStudents re-assigns students to the class in one transaction, refusing
// the whole batch when it would exceed the class capacity.
func (svc *service) MoveStudents(ctx context.Context, classID string, studentIDs ...string) error {
	cls, err := svc.repo.GetClassRoom(ctx, GetFilter{ID: classID})
	if err != nil {
		return err
	}

	return core.Serializable(ctx, svc.db, func(tx core.DBTransactor) error {
		count, err := svc.stdRepo.CountActiveStudentsByClass(ctx, cls.ID, tx)
		if err != nil {
			return err
		}
		if count+len(studentIDs) > cls.MaxStudents {
			return core.NewConflictError(fmt.Sprintf("class %q cannot take %d more student(s): capacity %d, enrolled %d",
				cls.Name, len(studentIDs), cls.MaxStudents, count))
		}
		return svc.stdRepo.MoveStudents(ctx, tx, cls.ID, studentIDs...)
	})
}

func (svc *service) checkHomeroom(ctx context.Context, cls ClassRoom, exec core.DBExecutor) error {
	if !cls.TeacherID.Valid || !cls.IsActive {
		return nil
	}
	taken, err := svc.repo.HasActiveHomeroom(ctx, cls.TeacherID.String, cls.Grade, cls.AcademicYear, cls.ID, exec)
	if err != nil {
		return err
	}
	if taken {
		return core.NewConflictError(fmt.Sprintf("teacher is already the homeroom teacher of an active grade %d class in %s",
			cls.Grade, cls.AcademicYear))
	}
	return nil
}
