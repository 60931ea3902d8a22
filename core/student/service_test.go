package student

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/tests"
)

type fakeRepo struct {
	students map[string]Student
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{students: make(map[string]Student)}
}

func (repo *fakeRepo) CheckStudentUniqueness(ctx context.Context, studentID, nisn string, excludedStudents []Student, exec ...core.DBExecutor) error {
	for _, std := range repo.students {
		excluded := false
		for _, excl := range excludedStudents {
			if excl.ID == std.ID {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		if std.StudentID == studentID {
			return ErrStudentIDExists
		}
		if nisn != "" && std.NISN.String == nisn {
			return ErrNISNExists
		}
	}
	return nil
}

func (repo *fakeRepo) CreateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error) {
	repo.students[std.ID] = std
	return std, nil
}

func (repo *fakeRepo) GetStudent(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Student, error) {
	for _, std := range repo.students {
		switch {
		case filter.ID != "" && std.ID == filter.ID:
			return std, nil
		case filter.UserID != "" && std.UserID == filter.UserID:
			return std, nil
		case filter.StudentID != "" && std.StudentID == filter.StudentID:
			return std, nil
		}
	}
	return Student{}, ErrNotFound
}

func (repo *fakeRepo) FilterStudents(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Student, error) {
	students := make([]Student, 0, len(repo.students))
	for _, std := range repo.students {
		students = append(students, std)
	}
	return students, nil
}

func (repo *fakeRepo) UpdateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error) {
	if _, ok := repo.students[std.ID]; !ok {
		return Student{}, ErrNotFound
	}
	repo.students[std.ID] = std
	return std, nil
}

func (repo *fakeRepo) MoveStudents(ctx context.Context, exec core.DBExecutor, classID string, studentIDs ...string) error {
	for _, id := range studentIDs {
		if std, ok := repo.students[id]; ok {
			std.ClassID = classID
			repo.students[id] = std
		}
	}
	return nil
}

func (repo *fakeRepo) CountActiveStudentsByClass(ctx context.Context, classID string, exec ...core.DBExecutor) (int, error) {
	var count int
	for _, std := range repo.students {
		if std.ClassID == classID && std.IsActive() {
			count++
		}
	}
	return count, nil
}

type fakeUserRepo struct {
	users     map[string]user.User
	createErr error
}

var _ user.Repository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]user.User)}
}

func (repo *fakeUserRepo) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	return nil
}

func (repo *fakeUserRepo) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if repo.createErr != nil {
		return user.User{}, repo.createErr
	}
	repo.users[usr.ID] = usr
	return usr, nil
}

func (repo *fakeUserRepo) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	if usr, ok := repo.users[filter.ID]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *fakeUserRepo) FilterUsers(ctx context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	return nil, nil
}

func (repo *fakeUserRepo) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if _, ok := repo.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.users[usr.ID] = usr
	return usr, nil
}

func (repo *fakeUserRepo) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	return repo.CreateUser(ctx, usr, exec...)
}

func (repo *fakeUserRepo) DeleteUsersByID(ctx context.Context, exec core.DBExecutor, ids ...string) error {
	for _, id := range ids {
		delete(repo.users, id)
	}
	return nil
}

func (repo *fakeUserRepo) HasActiveHomeroom(ctx context.Context, userID string, exec ...core.DBExecutor) (bool, error) {
	return false, nil
}

type fakeMailer struct {
	sent []*core.EmailMessage
}

var _ core.EmailService = (*fakeMailer)(nil)

func (m *fakeMailer) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

func setupSvc() (*service, *fakeRepo, *fakeUserRepo, *fakeMailer) {
	core.Conf = &core.Config{AppName: "Shule", SecretKey: "secret"}
	repo := newFakeRepo()
	usrRepo := newFakeUserRepo()
	mailer := new(fakeMailer)
	return NewService(testutil.NewDB(), repo, usrRepo, mailer, core.Conf), repo, usrRepo, mailer
}

func Test_service_Create(t *testing.T) {
	svc, repo, usrRepo, mailer := setupSvc()

	std, err := svc.Create(context.Background(), NewStudent{
		User: user.NewUser{
			Name:     "Awe Mob",
			Username: "awemob",
			Email:    "awemob@test.cd",
			Password: "LePassw0rd!",
		},
		StudentID:   "2026-0042",
		NISN:        "0123456789",
		ClassID:     uuid.New().String(),
		ParentName:  "Mob Snr",
		ParentPhone: "+243811234567",
		ParentEmail: "mob.snr@test.cd",
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	// account and profile exist together
	if std.User == nil {
		t.Fatal("Create() did not attach the user account")
	}
	usr, ok := usrRepo.users[std.UserID]
	if !ok {
		t.Fatal("Create() did not persist the user account")
	}
	if _, ok = repo.students[std.ID]; !ok {
		t.Fatal("Create() did not persist the student profile")
	}
	if !usr.IsStudent() {
		t.Errorf("Create() roles = %v, want student", usr.Roles)
	}
	if usr.IsActive == nil || !*usr.IsActive {
		t.Error("Create() account is not active")
	}
	if std.Status != StatusActive {
		t.Errorf("Create() Status = %q, want %q", std.Status, StatusActive)
	}
	if std.EntryDate.IsZero() {
		t.Error("Create() EntryDate not defaulted")
	}

	// welcome mail carries the initial password
	if len(mailer.sent) != 1 {
		t.Fatalf("Create() sent %d mail(s), want 1", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if msg.TemplateName != "student-welcome" {
		t.Errorf("Create() mail template = %q, want student-welcome", msg.TemplateName)
	}
	data, ok := msg.TemplateData.(struct {
		User     user.User
		Password string
	})
	if !ok {
		t.Fatalf("Create() mail data = %T, want user and password", msg.TemplateData)
	}
	if data.Password != "LePassw0rd!" {
		t.Errorf("Create() mail password = %q, want the initial one", data.Password)
	}
}

func Test_service_Create_accountFailureLeavesNoProfile(t *testing.T) {
	svc, repo, usrRepo, mailer := setupSvc()
	usrRepo.createErr = errors.New("insert failed")

	_, err := svc.Create(context.Background(), NewStudent{
		User: user.NewUser{
			Name:     "Awe Mob",
			Username: "awemob",
			Email:    "awemob@test.cd",
			Password: "LePassw0rd!",
		},
		StudentID:   "2026-0042",
		ClassID:     uuid.New().String(),
		ParentName:  "Mob Snr",
		ParentPhone: "+243811234567",
	})
	if err == nil {
		t.Fatal("Create() did not fail")
	}
	if !errors.Is(err, usrRepo.createErr) {
		t.Errorf("Create() error = %v, want the account failure", err)
	}
	if len(repo.students) != 0 {
		t.Error("Create() persisted a student profile without an account")
	}
	if len(mailer.sent) != 0 {
		t.Error("Create() sent a welcome mail for a failed creation")
	}
}

func Test_service_CheckUniqueness(t *testing.T) {
	svc, repo, _, _ := setupSvc()

	existing := Student{ID: uuid.New().String(), StudentID: "2026-0001"}
	existing.NISN.SetValid("9876543210")
	repo.students[existing.ID] = existing

	checkField := func(err error, field string) {
		t.Helper()
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("CheckUniqueness() error = %v, want validation error", err)
		}
		if len(vErr.Fields) != 1 || vErr.Fields[0].Field != field {
			t.Errorf("CheckUniqueness() fields = %+v, want %s", vErr.Fields, field)
		}
	}

	checkField(svc.CheckUniqueness("2026-0001", ""), "student_id")
	checkField(svc.CheckUniqueness("2026-0002", "9876543210"), "nisn")

	// the student itself is excluded when updating
	if err := svc.CheckUniqueness("2026-0001", "9876543210", existing); err != nil {
		t.Errorf("CheckUniqueness() failed: %v", err)
	}

	if err := svc.CheckUniqueness("2026-0002", "0123456789"); err != nil {
		t.Errorf("CheckUniqueness() failed: %v", err)
	}
}

func Test_service_Update_ridesUserAlong(t *testing.T) {
	svc, repo, usrRepo, _ := setupSvc()
	ctx := context.Background()

	usr := user.User{ID: uuid.New().String(), Name: "Awe", Username: "awe", Email: "awe@test.cd", Roles: user.StudentRoles}
	usrRepo.users[usr.ID] = usr
	std := Student{ID: uuid.New().String(), UserID: usr.ID, StudentID: "2026-0001", Status: StatusActive, User: &usr}
	repo.students[std.ID] = std

	updated, err := svc.Update(ctx, std.ID, UpdateStudent{
		User:      &user.UpdateUser{Name: "Awe Mob", Username: "awe", Email: "awe@test.cd"},
		StudentID: "2026-0001",
		Status:    StatusGraduated,
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if updated.Status != StatusGraduated {
		t.Errorf("Update() Status = %q, want %q", updated.Status, StatusGraduated)
	}
	if got := usrRepo.users[usr.ID].Name; got != "Awe Mob" {
		t.Errorf("Update() user name = %q, want %q", got, "Awe Mob")
	}
}
