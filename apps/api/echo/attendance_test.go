package echoapi

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/classroom"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

type fakeClassRoomService struct {
	classes map[string]classroom.ClassRoom
	err     error
}

var _ classroom.Service = (*fakeClassRoomService)(nil)

func (svc *fakeClassRoomService) Create(ctx context.Context, nc classroom.NewClassRoom) (classroom.ClassRoom, error) {
	return classroom.ClassRoom{}, nil
}

func (svc *fakeClassRoomService) Query(ctx context.Context, filter *classroom.QueryFilter, orderings ...core.DBOrdering) ([]classroom.ClassRoom, error) {
	return nil, nil
}

func (svc *fakeClassRoomService) GetByID(ctx context.Context, id string) (classroom.ClassRoom, error) {
	if svc.err != nil {
		return classroom.ClassRoom{}, svc.err
	}
	if cls, ok := svc.classes[id]; ok {
		return cls, nil
	}
	return classroom.ClassRoom{}, classroom.ErrNotFound
}

func (svc *fakeClassRoomService) Update(ctx context.Context, id string, uc classroom.UpdateClassRoom) (classroom.ClassRoom, error) {
	return classroom.ClassRoom{}, nil
}

func (svc *fakeClassRoomService) Delete(ctx context.Context, ids ...string) error {
	return nil
}

func (svc *fakeClassRoomService) GetRoster(ctx context.Context, id string) (classroom.Roster, error) {
	return classroom.Roster{}, nil
}

func (svc *fakeClassRoomService) MoveStudents(ctx context.Context, classID string, studentIDs ...string) error {
	return nil
}

func TestAttendanceAPI_checkWrite(t *testing.T) {
	std := student.Student{ID: "std-1", UserID: "std-usr-1", ClassID: "cls-1"}
	cls := classroom.ClassRoom{ID: "cls-1", TeacherID: null.StringFrom("tch-usr-1")}
	att := attendance.Attendance{ID: "att-1", StudentID: std.ID, TeacherID: "tch-usr-2"}

	newAPI := func(stdErr, clsErr error) *attendanceApi {
		return &attendanceApi{
			stdSvc: &fakeStudentService{students: map[string]student.Student{std.UserID: std}, err: stdErr},
			clsSvc: &fakeClassRoomService{classes: map[string]classroom.ClassRoom{cls.ID: cls}, err: clsErr},
		}
	}
	homeroom := user.User{ID: "tch-usr-1", Roles: user.TeacherRoles}

	t.Run("homeroom teacher may write", func(t *testing.T) {
		if err := newAPI(nil, nil).checkWrite(newContextWithUser("/", homeroom), att); err != nil {
			t.Errorf("checkWrite() failed: %v", err)
		}
	})

	t.Run("missing student denies an unrelated teacher", func(t *testing.T) {
		orphan := attendance.Attendance{ID: "att-2", StudentID: "gone", TeacherID: "tch-usr-2"}
		err := newAPI(nil, nil).checkWrite(newContextWithUser("/", homeroom), orphan)
		if !errors.Is(err, core.ErrForbidden) {
			t.Errorf("checkWrite() error = %v, want forbidden", err)
		}
	})

	t.Run("student lookup failure surfaces", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		err := newAPI(dbErr, nil).checkWrite(newContextWithUser("/", homeroom), att)
		if !errors.Is(err, dbErr) {
			t.Errorf("checkWrite() error = %v, want the lookup failure", err)
		}
		if errors.Is(err, core.ErrForbidden) {
			t.Error("checkWrite() turned a lookup failure into a permission denial")
		}
	})

	t.Run("class lookup failure surfaces", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		err := newAPI(nil, dbErr).checkWrite(newContextWithUser("/", homeroom), att)
		if !errors.Is(err, dbErr) {
			t.Errorf("checkWrite() error = %v, want the lookup failure", err)
		}
	})
}
