package student

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("student not found")
	ErrStudentIDExists = errors.New("a student with this student number already exists")
	ErrNISNExists      = errors.New("a student with this NISN already exists")
)

type (
	Repository interface {
		CheckStudentUniqueness(ctx context.Context, studentID, nisn string, excludedStudents []Student, exec ...core.DBExecutor) error
		CreateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		GetStudent(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Student, error)
		// FilterStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on the student's name, NIS or NISN.
		FilterStudents(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Student, error)
		UpdateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		// MoveStudents re-assigns students to the given class.
		MoveStudents(ctx context.Context, exec core.DBExecutor, classID string, studentIDs ...string) error
		CountActiveStudentsByClass(ctx context.Context, classID string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		CheckUniqueness(studentID, nisn string, exclStudents ...Student) error
		Create(ctx context.Context, ns NewStudent) (Student, error)
		Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]Student, error)
		GetByID(ctx context.Context, id string) (Student, error)
		GetByUserID(ctx context.Context, userID string) (Student, error)
		Update(ctx context.Context, id string, us UpdateStudent) (Student, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		usrRepo user.Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, usrRepo user.Repository, mailSvc core.EmailService, conf *core.Config) *service {
	return &service{
		db:      db,
		repo:    repo,
		usrRepo: usrRepo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) CheckUniqueness(studentID, nisn string, exclStudents ...Student) error {
	if err := svc.repo.CheckStudentUniqueness(context.Background(), studentID, nisn, exclStudents); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrStudentIDExists:
			field = "student_id"
		case ErrNISNExists:
			field = "nisn"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// Create enrolls a student: the user account and the student profile are
// written in one transaction so neither can exist without the other.
func (svc *service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()

	usr := user.User{
		ID:        uuid.New().String(),
		Name:      ns.User.Name,
		Username:  ns.User.Username,
		Email:     ns.User.Email,
		Roles:     user.StudentRoles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(ns.User.Password); err != nil {
		return Student{}, errors.Wrap(err, "setting password")
	}

	std := Student{
		ID:          uuid.New().String(),
		UserID:      usr.ID,
		StudentID:   ns.StudentID,
		ClassID:     ns.ClassID,
		ParentName:  ns.ParentName,
		ParentPhone: ns.ParentPhone,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	applyOptionalFields(&std, ns.NISN, ns.ParentEmail, ns.ParentAddress, ns.EntryDate, ns.Status)
	if std.EntryDate.IsZero() {
		std.EntryDate = now
	}

	err := core.Atomic(ctx, svc.db, nil, func(tx core.DBTransactor) error {
		var err error
		if usr, err = svc.usrRepo.CreateUser(ctx, usr, tx); err != nil {
			return errors.Wrap(err, "creating user account")
		}
		if std, err = svc.repo.CreateStudent(ctx, std, tx); err != nil {
			return errors.Wrap(err, "creating student profile")
		}
		return nil
	})
	if err != nil {
		return Student{}, err
	}

	std.User = &usr
	svc.sendWelcomeMail(usr, ns.User.Password)
	return std, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]Student, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.FilterStudents(ctx, *filter, orderings...)
}

func (svc *service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUserID(ctx context.Context, userID string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{UserID: userID})
}

// Update modifies a student profile and, when account fields are provided,
// the paired user account in the same transaction.
func (svc *service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	std, err := svc.repo.GetStudent(ctx, GetFilter{ID: id})
	if err != nil {
		return Student{}, err
	}
	now := time.Now().UTC()

	std.StudentID = us.StudentID
	if us.ClassID != "" {
		std.ClassID = us.ClassID
	}
	if name := core.CleanString(us.ParentName); name != "" {
		std.ParentName = name
	}
	if phone := core.CleanString(us.ParentPhone); phone != "" {
		std.ParentPhone = phone
	}
	applyOptionalFields(&std, us.NISN, us.ParentEmail, us.ParentAddress, us.EntryDate, us.Status)
	std.UpdatedAt = now

	var usr user.User
	if us.User != nil && std.User != nil {
		usr = *std.User
		usr.Name = us.User.Name
		usr.Username = us.User.Username
		usr.Email = us.User.Email
		if us.User.IsActive != nil {
			usr.IsActive = us.User.IsActive
		}
		if us.User.Password != "" {
			if err := usr.SetPassword(us.User.Password); err != nil {
				return Student{}, errors.Wrap(err, "setting password")
			}
		}
		usr.UpdatedAt = now
	}

	err = core.Atomic(ctx, svc.db, nil, func(tx core.DBTransactor) error {
		var err error
		if usr.ID != "" {
			if usr, err = svc.usrRepo.UpdateUser(ctx, usr, tx); err != nil {
				return errors.Wrap(err, "updating user account")
			}
		}
		if std, err = svc.repo.UpdateStudent(ctx, std, tx); err != nil {
			return errors.Wrap(err, "updating student profile")
		}
		return nil
	})
	if err != nil {
		return Student{}, err
	}
	if usr.ID != "" {
		std.User = &usr
	}
	return std, nil
}

func (svc *service) sendWelcomeMail(usr user.User, pwd string) {
	svc.mailSvc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      "Welcome",
			TemplateName: "student-welcome",
			TemplateData: struct {
				User     user.User
				Password string
			}{usr, pwd},
		},
	)
}

func applyOptionalFields(std *Student, nisn, parentEmail, parentAddress, entryDate, status string) {
	if nisn = core.CleanString(nisn); nisn != "" {
		std.NISN = null.StringFrom(nisn)
	}
	if parentEmail = core.CleanString(parentEmail, true /* lower */); parentEmail != "" {
		std.ParentEmail = null.StringFrom(parentEmail)
	}
	if parentAddress = core.CleanString(parentAddress); parentAddress != "" {
		std.ParentAddress = null.StringFrom(parentAddress)
	}
	if entryDate = core.CleanString(entryDate); entryDate != "" {
		if d, err := time.Parse("2006-01-02", entryDate); err == nil {
			std.EntryDate = d
		}
	}
	if status = core.CleanString(status, true /* lower */); status != "" {
		std.Status = status
	}
}
