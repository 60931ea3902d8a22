package subject

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/tests"
)

type fakeRepo struct {
	subjects  map[string]Subject
	gradedIDs map[string]bool // subject IDs with recorded grades
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		subjects:  make(map[string]Subject),
		gradedIDs: make(map[string]bool),
	}
}

func (repo *fakeRepo) CheckCodeUniqueness(ctx context.Context, code string, excludedSubjects []Subject, exec ...core.DBExecutor) error {
	for _, sub := range repo.subjects {
		excluded := false
		for _, excl := range excludedSubjects {
			if excl.ID == sub.ID {
				excluded = true
				break
			}
		}
		if !excluded && sub.Code == code {
			return ErrCodeExists
		}
	}
	return nil
}

func (repo *fakeRepo) CreateSubject(ctx context.Context, sub Subject, exec ...core.DBExecutor) (Subject, error) {
	repo.subjects[sub.ID] = sub
	return sub, nil
}

func (repo *fakeRepo) GetSubject(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Subject, error) {
	if sub, ok := repo.subjects[filter.ID]; ok {
		return sub, nil
	}
	return Subject{}, ErrNotFound
}

func (repo *fakeRepo) FilterSubjects(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Subject, error) {
	subjects := make([]Subject, 0, len(repo.subjects))
	for _, sub := range repo.subjects {
		subjects = append(subjects, sub)
	}
	return subjects, nil
}

func (repo *fakeRepo) UpdateSubject(ctx context.Context, sub Subject, exec ...core.DBExecutor) (Subject, error) {
	if _, ok := repo.subjects[sub.ID]; !ok {
		return Subject{}, ErrNotFound
	}
	repo.subjects[sub.ID] = sub
	return sub, nil
}

func (repo *fakeRepo) DeleteSubjectsByID(ctx context.Context, exec core.DBExecutor, ids ...string) error {
	for _, id := range ids {
		delete(repo.subjects, id)
	}
	return nil
}

func (repo *fakeRepo) HasGrades(ctx context.Context, subjectID string, exec ...core.DBExecutor) (bool, error) {
	return repo.gradedIDs[subjectID], nil
}

func Test_service_CheckUniqueness(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(testutil.NewDB(), repo)

	existing := Subject{ID: uuid.New().String(), Name: "Mathematics", Code: "mat4"}
	repo.subjects[existing.ID] = existing

	err := svc.CheckUniqueness("mat4")
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("CheckUniqueness() error = %v, want validation error", err)
	}
	if len(vErr.Fields) != 1 || vErr.Fields[0].Field != "code" {
		t.Errorf("CheckUniqueness() fields = %+v, want code", vErr.Fields)
	}

	// the subject itself is excluded when updating
	if err = svc.CheckUniqueness("mat4", existing); err != nil {
		t.Errorf("CheckUniqueness() failed: %v", err)
	}

	if err = svc.CheckUniqueness("ipa5"); err != nil {
		t.Errorf("CheckUniqueness() failed: %v", err)
	}
}

func Test_service_Delete_gradedGuard(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(testutil.NewDB(), repo)
	ctx := context.Background()

	graded := Subject{ID: uuid.New().String(), Name: "Science", Code: "ipa5", IsActive: true}
	clean := Subject{ID: uuid.New().String(), Name: "Arts", Code: "sbk5", IsActive: true}
	repo.subjects[graded.ID] = graded
	repo.subjects[clean.ID] = clean
	repo.gradedIDs[graded.ID] = true

	if err := svc.Delete(ctx, graded.ID); !core.IsState(err) {
		t.Errorf("Delete() error = %v, want state error", err)
	}
	if _, ok := repo.subjects[graded.ID]; !ok {
		t.Error("Delete() removed a graded subject")
	}

	// the guard rejects the whole batch
	if err := svc.Delete(ctx, clean.ID, graded.ID); !core.IsState(err) {
		t.Errorf("Delete() error = %v, want state error", err)
	}
	if _, ok := repo.subjects[clean.ID]; !ok {
		t.Error("Delete() removed part of a rejected batch")
	}

	if err := svc.Delete(ctx, clean.ID); err != nil {
		t.Errorf("Delete() failed: %v", err)
	}
	if _, ok := repo.subjects[clean.ID]; ok {
		t.Error("Delete() did not remove the subject")
	}
}
