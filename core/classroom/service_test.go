package classroom

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/tests"
)

type fakeRepo struct {
	classes map[string]ClassRoom
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{classes: make(map[string]ClassRoom)}
}

func (repo *fakeRepo) CreateClassRoom(ctx context.Context, cls ClassRoom, exec ...core.DBExecutor) (ClassRoom, error) {
	repo.classes[cls.ID] = cls
	return cls, nil
}

func (repo *fakeRepo) GetClassRoom(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (ClassRoom, error) {
	if cls, ok := repo.classes[filter.ID]; ok {
		return cls, nil
	}
	return ClassRoom{}, ErrNotFound
}

func (repo *fakeRepo) FilterClassRooms(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]ClassRoom, error) {
	classes := make([]ClassRoom, 0, len(repo.classes))
	for _, cls := range repo.classes {
		classes = append(classes, cls)
	}
	return classes, nil
}

func (repo *fakeRepo) UpdateClassRoom(ctx context.Context, cls ClassRoom, exec ...core.DBExecutor) (ClassRoom, error) {
	if _, ok := repo.classes[cls.ID]; !ok {
		return ClassRoom{}, ErrNotFound
	}
	repo.classes[cls.ID] = cls
	return cls, nil
}

func (repo *fakeRepo) DeleteClassRoomsByID(ctx context.Context, exec core.DBExecutor, ids ...string) error {
	for _, id := range ids {
		delete(repo.classes, id)
	}
	return nil
}

func (repo *fakeRepo) HasActiveHomeroom(ctx context.Context, teacherID string, grade int, academicYear, excludedClassID string, exec ...core.DBExecutor) (bool, error) {
	for _, cls := range repo.classes {
		if cls.ID == excludedClassID || !cls.IsActive {
			continue
		}
		if cls.TeacherID.String == teacherID && cls.Grade == grade && cls.AcademicYear == academicYear {
			return true, nil
		}
	}
	return false, nil
}

type fakeStudentRepo struct {
	students map[string]student.Student
}

var _ student.Repository = (*fakeStudentRepo)(nil)

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{students: make(map[string]student.Student)}
}

func (repo *fakeStudentRepo) CheckStudentUniqueness(ctx context.Context, studentID, nisn string, excludedStudents []student.Student, exec ...core.DBExecutor) error {
	return nil
}

func (repo *fakeStudentRepo) CreateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	repo.students[std.ID] = std
	return std, nil
}

func (repo *fakeStudentRepo) GetStudent(ctx context.Context, filter student.GetFilter, exec ...core.DBExecutor) (student.Student, error) {
	if std, ok := repo.students[filter.ID]; ok {
		return std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *fakeStudentRepo) FilterStudents(ctx context.Context, filter student.QueryFilter, orderings ...core.DBOrdering) ([]student.Student, error) {
	students := make([]student.Student, 0, len(repo.students))
	for _, std := range repo.students {
		if filter.ClassID != "" && std.ClassID != filter.ClassID {
			continue
		}
		students = append(students, std)
	}
	return students, nil
}

func (repo *fakeStudentRepo) UpdateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	repo.students[std.ID] = std
	return std, nil
}

func (repo *fakeStudentRepo) MoveStudents(ctx context.Context, exec core.DBExecutor, classID string, studentIDs ...string) error {
	for _, id := range studentIDs {
		if std, ok := repo.students[id]; ok {
			std.ClassID = classID
			repo.students[id] = std
		}
	}
	return nil
}

func (repo *fakeStudentRepo) CountActiveStudentsByClass(ctx context.Context, classID string, exec ...core.DBExecutor) (int, error) {
	var count int
	for _, std := range repo.students {
		if std.ClassID == classID && std.IsActive() {
			count++
		}
	}
	return count, nil
}

func (repo *fakeStudentRepo) addStudent(classID, status string) student.Student {
	std := student.Student{ID: uuid.New().String(), ClassID: classID, Status: status}
	repo.students[std.ID] = std
	return std
}

func setup() (*service, *fakeRepo, *fakeStudentRepo) {
	repo := newFakeRepo()
	stdRepo := newFakeStudentRepo()
	return NewService(testutil.NewDB(), repo, stdRepo), repo, stdRepo
}

func Test_service_Create_homeroomConflict(t *testing.T) {
	svc, _, _ := setup()
	ctx := context.Background()
	teacherID := uuid.New().String()

	cls, err := svc.Create(ctx, NewClassRoom{
		Name:         "3A",
		Grade:        3,
		TeacherID:    teacherID,
		MaxStudents:  30,
		AcademicYear: "2025/2026",
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if cls.ID == "" {
		t.Error("Create() did not assign an ID")
	}
	if !cls.IsActive {
		t.Error("Create() class is not active by default")
	}

	// same teacher, grade and year
	_, err = svc.Create(ctx, NewClassRoom{
		Name:         "3B",
		Grade:        3,
		TeacherID:    teacherID,
		MaxStudents:  30,
		AcademicYear: "2025/2026",
	})
	if !core.IsConflict(err) {
		t.Errorf("Create() error = %v, want conflict", err)
	}

	// same teacher, different grade: fine
	if _, err = svc.Create(ctx, NewClassRoom{
		Name:         "4A",
		Grade:        4,
		TeacherID:    teacherID,
		MaxStudents:  30,
		AcademicYear: "2025/2026",
	}); err != nil {
		t.Errorf("Create() failed: %v", err)
	}

	// no homeroom teacher at all: fine
	if _, err = svc.Create(ctx, NewClassRoom{
		Name:         "3B",
		Grade:        3,
		MaxStudents:  30,
		AcademicYear: "2025/2026",
	}); err != nil {
		t.Errorf("Create() failed: %v", err)
	}
}

func Test_service_Update_homeroom(t *testing.T) {
	svc, repo, _ := setup()
	ctx := context.Background()
	t1 := uuid.New().String()
	t2 := uuid.New().String()

	clsA := ClassRoom{ID: uuid.New().String(), Name: "5A", Grade: 5, TeacherID: null.StringFrom(t1), MaxStudents: 30, AcademicYear: "2025/2026", IsActive: true}
	clsB := ClassRoom{ID: uuid.New().String(), Name: "5B", Grade: 5, TeacherID: null.StringFrom(t2), MaxStudents: 30, AcademicYear: "2025/2026", IsActive: true}
	repo.classes[clsA.ID] = clsA
	repo.classes[clsB.ID] = clsB

	// moving t1 onto clsB conflicts with clsA
	if _, err := svc.Update(ctx, clsB.ID, UpdateClassRoom{TeacherID: &t1}); !core.IsConflict(err) {
		t.Errorf("Update() error = %v, want conflict", err)
	}

	// removing the homeroom teacher
	removed := ""
	cls, err := svc.Update(ctx, clsB.ID, UpdateClassRoom{TeacherID: &removed})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if cls.TeacherID.Valid {
		t.Errorf("Update() TeacherID = %v, want removed", cls.TeacherID)
	}

	// now t1 can take clsB once clsA is deactivated
	inactive := false
	if _, err = svc.Update(ctx, clsA.ID, UpdateClassRoom{IsActive: &inactive}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if cls, err = svc.Update(ctx, clsB.ID, UpdateClassRoom{TeacherID: &t1}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if cls.TeacherID.String != t1 {
		t.Errorf("Update() TeacherID = %q, want %q", cls.TeacherID.String, t1)
	}

	// nil leaves the teacher untouched
	if cls, err = svc.Update(ctx, clsB.ID, UpdateClassRoom{Name: "5C"}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if cls.TeacherID.String != t1 {
		t.Errorf("Update() TeacherID = %q, want untouched %q", cls.TeacherID.String, t1)
	}
}

func Test_service_Delete_activeStudentsGuard(t *testing.T) {
	svc, repo, stdRepo := setup()
	ctx := context.Background()

	cls := ClassRoom{ID: uuid.New().String(), Name: "6A", Grade: 6, MaxStudents: 30, AcademicYear: "2025/2026", IsActive: true}
	repo.classes[cls.ID] = cls
	stdRepo.addStudent(cls.ID, student.StatusActive)
	stdRepo.addStudent(cls.ID, student.StatusGraduated)

	if err := svc.Delete(ctx, cls.ID); !core.IsState(err) {
		t.Errorf("Delete() error = %v, want state error", err)
	}

	// graduated students do not block
	for id, std := range stdRepo.students {
		if std.IsActive() {
			std.Status = student.StatusGraduated
			stdRepo.students[id] = std
		}
	}
	if err := svc.Delete(ctx, cls.ID); err != nil {
		t.Errorf("Delete() failed: %v", err)
	}
	if _, ok := repo.classes[cls.ID]; ok {
		t.Error("Delete() did not remove the class")
	}
}

func Test_service_MoveStudents_capacity(t *testing.T) {
	svc, repo, stdRepo := setup()
	ctx := context.Background()

	cls := ClassRoom{ID: uuid.New().String(), Name: "1A", Grade: 1, MaxStudents: 10, AcademicYear: "2025/2026", IsActive: true}
	repo.classes[cls.ID] = cls
	for i := 0; i < 9; i++ {
		stdRepo.addStudent(cls.ID, student.StatusActive)
	}

	newcomer1 := stdRepo.addStudent("", student.StatusActive)
	newcomer2 := stdRepo.addStudent("", student.StatusActive)

	// 9 enrolled + 2 newcomers > 10
	err := svc.MoveStudents(ctx, cls.ID, newcomer1.ID, newcomer2.ID)
	if !core.IsConflict(err) {
		t.Errorf("MoveStudents() error = %v, want conflict", err)
	}

	if err = svc.MoveStudents(ctx, cls.ID, newcomer1.ID); err != nil {
		t.Fatalf("MoveStudents() failed: %v", err)
	}
	if got := stdRepo.students[newcomer1.ID].ClassID; got != cls.ID {
		t.Errorf("MoveStudents() ClassID = %q, want %q", got, cls.ID)
	}
	if got := stdRepo.students[newcomer2.ID].ClassID; got != "" {
		t.Errorf("MoveStudents() ClassID = %q, want unchanged", got)
	}
}

func Test_service_GetRoster(t *testing.T) {
	svc, repo, stdRepo := setup()
	ctx := context.Background()

	cls := ClassRoom{ID: uuid.New().String(), Name: "2A", Grade: 2, MaxStudents: 30, AcademicYear: "2025/2026", IsActive: true}
	repo.classes[cls.ID] = cls
	stdRepo.addStudent(cls.ID, student.StatusActive)
	stdRepo.addStudent(cls.ID, student.StatusActive)
	stdRepo.addStudent(cls.ID, student.StatusInactive)
	stdRepo.addStudent(uuid.New().String(), student.StatusActive) // other class

	roster, err := svc.GetRoster(ctx, cls.ID)
	if err != nil {
		t.Fatalf("GetRoster() failed: %v", err)
	}
	if len(roster.Students) != 3 {
		t.Errorf("GetRoster() students = %d, want 3", len(roster.Students))
	}
	if roster.ActiveCount != 2 {
		t.Errorf("GetRoster() ActiveCount = %d, want 2", roster.ActiveCount)
	}
}
