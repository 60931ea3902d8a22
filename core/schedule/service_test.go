package schedule

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/tests"
)

type fakeRepo struct {
	schedules map[string]Schedule
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{schedules: make(map[string]Schedule)}
}

func (repo *fakeRepo) CreateSchedule(ctx context.Context, sched Schedule, exec ...core.DBExecutor) (Schedule, error) {
	repo.schedules[sched.ID] = sched
	return sched, nil
}

func (repo *fakeRepo) GetSchedule(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Schedule, error) {
	if sched, ok := repo.schedules[filter.ID]; ok {
		return sched, nil
	}
	return Schedule{}, ErrNotFound
}

func (repo *fakeRepo) FilterSchedules(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Schedule, error) {
	schedules := make([]Schedule, 0, len(repo.schedules))
	for _, sched := range repo.schedules {
		schedules = append(schedules, sched)
	}
	return schedules, nil
}

func (repo *fakeRepo) UpdateSchedule(ctx context.Context, sched Schedule, exec ...core.DBExecutor) (Schedule, error) {
	if _, ok := repo.schedules[sched.ID]; !ok {
		return Schedule{}, ErrNotFound
	}
	repo.schedules[sched.ID] = sched
	return sched, nil
}

func (repo *fakeRepo) DeleteSchedulesByID(ctx context.Context, exec core.DBExecutor, ids ...string) error {
	for _, id := range ids {
		delete(repo.schedules, id)
	}
	return nil
}

func (repo *fakeRepo) ConflictCandidates(ctx context.Context, sched Schedule, exec ...core.DBExecutor) ([]Schedule, error) {
	var candidates []Schedule
	for _, c := range repo.schedules {
		if c.ID == sched.ID || !c.IsActive {
			continue
		}
		if c.Day != sched.Day || c.AcademicYear != sched.AcademicYear || c.Semester != sched.Semester {
			continue
		}
		if c.ClassID != sched.ClassID && c.TeacherID != sched.TeacherID {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func Test_service_Create_overlap(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(testutil.NewDB(), repo)
	ctx := context.Background()

	classID := uuid.New().String()
	teacherID := uuid.New().String()

	ns := NewSchedule{
		ClassID:      classID,
		SubjectID:    uuid.New().String(),
		TeacherID:    teacherID,
		Day:          "monday",
		StartTime:    "08:00",
		EndTime:      "09:30",
		AcademicYear: "2025/2026",
		Semester:     1,
	}
	if _, err := svc.Create(ctx, ns); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	// same class, overlapping window
	overlap := ns
	overlap.SubjectID = uuid.New().String()
	overlap.TeacherID = uuid.New().String()
	overlap.StartTime = "09:00"
	overlap.EndTime = "10:00"
	if _, err := svc.Create(ctx, overlap); !core.IsConflict(err) {
		t.Errorf("Create() error = %v, want conflict", err)
	}

	// same teacher in another class, overlapping window
	overlap.ClassID = uuid.New().String()
	overlap.TeacherID = teacherID
	if _, err := svc.Create(ctx, overlap); !core.IsConflict(err) {
		t.Errorf("Create() error = %v, want conflict", err)
	}

	// back-to-back is not an overlap
	adjacent := ns
	adjacent.SubjectID = uuid.New().String()
	adjacent.StartTime = "09:30"
	adjacent.EndTime = "10:30"
	if _, err := svc.Create(ctx, adjacent); err != nil {
		t.Errorf("Create() failed: %v", err)
	}

	// other day: fine
	otherDay := ns
	otherDay.Day = "tuesday"
	if _, err := svc.Create(ctx, otherDay); err != nil {
		t.Errorf("Create() failed: %v", err)
	}

	// other semester: fine
	otherSem := ns
	otherSem.Semester = 2
	if _, err := svc.Create(ctx, otherSem); err != nil {
		t.Errorf("Create() failed: %v", err)
	}
}

func Test_service_Create_inactiveSkipsCheck(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(testutil.NewDB(), repo)
	ctx := context.Background()

	ns := NewSchedule{
		ClassID:      uuid.New().String(),
		SubjectID:    uuid.New().String(),
		TeacherID:    uuid.New().String(),
		Day:          "friday",
		StartTime:    "08:00",
		EndTime:      "09:00",
		AcademicYear: "2025/2026",
		Semester:     1,
	}
	if _, err := svc.Create(ctx, ns); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	inactive := false
	ns.IsActive = &inactive
	if _, err := svc.Create(ctx, ns); err != nil {
		t.Errorf("Create() failed for inactive duplicate: %v", err)
	}
}

func Test_service_Update_overlap(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(testutil.NewDB(), repo)
	ctx := context.Background()

	classID := uuid.New().String()
	base := Schedule{
		ID: uuid.New().String(), ClassID: classID, SubjectID: uuid.New().String(), TeacherID: uuid.New().String(),
		Day: "monday", StartTime: "08:00", EndTime: "09:00", AcademicYear: "2025/2026", Semester: 1, IsActive: true,
	}
	other := Schedule{
		ID: uuid.New().String(), ClassID: classID, SubjectID: uuid.New().String(), TeacherID: uuid.New().String(),
		Day: "monday", StartTime: "10:00", EndTime: "11:00", AcademicYear: "2025/2026", Semester: 1, IsActive: true,
	}
	repo.schedules[base.ID] = base
	repo.schedules[other.ID] = other

	// sliding base onto other conflicts
	if _, err := svc.Update(ctx, base.ID, UpdateSchedule{StartTime: "10:30", EndTime: "11:30"}); !core.IsConflict(err) {
		t.Errorf("Update() error = %v, want conflict", err)
	}

	// a schedule never conflicts with itself
	sched, err := svc.Update(ctx, base.ID, UpdateSchedule{StartTime: "08:30", EndTime: "09:30"})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if sched.StartTime != "08:30" || sched.EndTime != "09:30" {
		t.Errorf("Update() window = %s-%s, want 08:30-09:30", sched.StartTime, sched.EndTime)
	}
}
