package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/tests"
)

type fakeRepo struct {
	users       map[string]User
	homeroomIDs map[string]bool // user IDs with an active homeroom
	takenUnames []string
	takenEmails []string
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:       make(map[string]User),
		homeroomIDs: make(map[string]bool),
	}
}

func (repo *fakeRepo) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []User, exec ...core.DBExecutor) error {
	for _, taken := range repo.takenUnames {
		if taken == username {
			return ErrUsernameExists
		}
	}
	for _, taken := range repo.takenEmails {
		if taken == email {
			return ErrEmailExists
		}
	}
	return nil
}

func (repo *fakeRepo) CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error) {
	repo.users[usr.ID] = usr
	return usr, nil
}

func (repo *fakeRepo) GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error) {
	for _, usr := range repo.users {
		switch {
		case filter.ID != "" && usr.ID == filter.ID:
			return usr, nil
		case filter.Email != "" && usr.Email == filter.Email:
			return usr, nil
		}
		for _, uname := range filter.UsernameOrEmail {
			if usr.Username == uname || usr.Email == uname {
				return usr, nil
			}
		}
	}
	return User{}, ErrNotFound
}

func (repo *fakeRepo) FilterUsers(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]User, error) {
	users := make([]User, 0, len(repo.users))
	for _, usr := range repo.users {
		users = append(users, usr)
	}
	return users, nil
}

func (repo *fakeRepo) UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error) {
	if _, ok := repo.users[usr.ID]; !ok {
		return User{}, ErrNotFound
	}
	repo.users[usr.ID] = usr
	return usr, nil
}

func (repo *fakeRepo) UpdateOrCreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	repo.users[usr.ID] = usr
	return usr, nil
}

func (repo *fakeRepo) DeleteUsersByID(ctx context.Context, exec core.DBExecutor, ids ...string) error {
	for _, id := range ids {
		delete(repo.users, id)
	}
	return nil
}

func (repo *fakeRepo) HasActiveHomeroom(ctx context.Context, userID string, exec ...core.DBExecutor) (bool, error) {
	return repo.homeroomIDs[userID], nil
}

type fakeMailer struct {
	sent []*core.EmailMessage
}

var _ core.EmailService = (*fakeMailer)(nil)

func (m *fakeMailer) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

func setupSvc() (*service, *fakeRepo, *fakeMailer) {
	core.Conf = &core.Config{AppName: "Shule", SecretKey: "secret"}
	repo := newFakeRepo()
	mailer := new(fakeMailer)
	return NewService(testutil.NewDB(), repo, mailer, core.Conf), repo, mailer
}

func Test_service_Create(t *testing.T) {
	svc, _, mailer := setupSvc()

	usr, err := svc.Create(context.Background(), NewUser{
		Name:     "Asha Bindu",
		Username: "asha",
		Email:    "asha@test.cd",
		Password: "LePassw0rd!",
		Roles:    TeacherRoles,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if !usr.IsTeacher() {
		t.Errorf("Create() roles = %v, want teacher", usr.Roles)
	}
	if usr.IsActive == nil || !*usr.IsActive {
		t.Error("Create() user is not active")
	}
	if err = usr.CheckPassword("LePassw0rd!"); err != nil {
		t.Errorf("CheckPassword() failed: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].TemplateName != "welcome" {
		t.Errorf("Create() sent mails = %+v, want one welcome mail", mailer.sent)
	}
}

func Test_service_CheckUniqueness(t *testing.T) {
	svc, repo, _ := setupSvc()

	repo.takenUnames = []string{"awe"}
	repo.takenEmails = []string{"awe@test.cd"}

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

	checkField(svc.CheckUniqueness("awe", "other@test.cd"), "username")
	checkField(svc.CheckUniqueness("other", "awe@test.cd"), "email")

	if err := svc.CheckUniqueness("other", "other@test.cd"); err != nil {
		t.Errorf("CheckUniqueness() failed: %v", err)
	}
}

func Test_service_Delete_homeroomGuard(t *testing.T) {
	svc, repo, _ := setupSvc()
	ctx := context.Background()

	teacher := User{ID: uuid.New().String(), Name: "Mob", Username: "mob", Roles: TeacherRoles}
	plain := User{ID: uuid.New().String(), Name: "Awe", Username: "awe", Roles: StudentRoles}
	repo.users[teacher.ID] = teacher
	repo.users[plain.ID] = plain
	repo.homeroomIDs[teacher.ID] = true

	if err := svc.Delete(ctx, teacher.ID); !core.IsState(err) {
		t.Errorf("Delete() error = %v, want state error", err)
	}
	if _, ok := repo.users[teacher.ID]; !ok {
		t.Error("Delete() removed a homeroom teacher")
	}

	// guard rejects the whole batch
	if err := svc.Delete(ctx, plain.ID, teacher.ID); !core.IsState(err) {
		t.Errorf("Delete() error = %v, want state error", err)
	}
	if _, ok := repo.users[plain.ID]; !ok {
		t.Error("Delete() removed part of a rejected batch")
	}

	// once the class is handed over, deletion goes through
	repo.homeroomIDs[teacher.ID] = false
	if err := svc.Delete(ctx, teacher.ID, plain.ID); err != nil {
		t.Errorf("Delete() failed: %v", err)
	}
	if len(repo.users) != 0 {
		t.Errorf("Delete() left %d user(s)", len(repo.users))
	}
}
