package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

type studentApi struct {
	svc     student.Service
	usrSvc  user.Service
	gradSvc grade.Service
	attSvc  attendance.Service

	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{
		svc:      deps.StudentSvc,
		usrSvc:   deps.UserSvc,
		gradSvc:  deps.GradeSvc,
		attSvc:   deps.AttendanceSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/students", jwt)
	sg.POST("", api.create, adminMiddleware())
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, adminMiddleware())
}

// StudentDetail is a student profile with its derived academic summary.
type StudentDetail struct {
	student.Student
	GradeAverage      float64            `json:"grade_average"`
	AttendanceSummary attendance.Summary `json:"attendance_summary"`
}

// Handlers

// create enrolls a student: user account + profile in one transaction, then a
// welcome email carrying the initial password.
func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate, api.svc, api.usrSvc); err != nil {
		return err
	}

	std, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

// query lists students. Admins and teachers see everyone; a student sees
// themselves; a parent sees their linked children.
func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !(ctxUsr.IsAdmin() || ctxUsr.IsTeacher()) {
		visible := make([]student.Student, 0, len(students))
		for _, std := range students {
			if auth.ReadStudent(ctxUsr, studentFacts(std)) == nil {
				visible = append(visible, std)
			}
		}
		students = visible
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	std, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = auth.ReadStudent(ctxUsr, studentFacts(std)); err != nil {
		return err
	}

	avg, err := api.gradSvc.Average(reqCtx, grade.QueryFilter{StudentID: std.ID})
	if err != nil {
		return errors.Wrap(err, "averaging grades")
	}
	summary, err := api.attSvc.Summary(reqCtx, attendance.QueryFilter{StudentID: std.ID})
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}

	return ctx.JSON(http.StatusOK, StudentDetail{
		Student:           std,
		GradeAverage:      avg,
		AttendanceSummary: summary,
	})
}

func (api *studentApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	std, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(std, api.validate, api.svc, api.usrSvc); err != nil {
		return err
	}

	std, err = api.svc.Update(reqCtx, std.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func studentFacts(std student.Student) auth.Student {
	return auth.Student{
		UserID:      std.UserID,
		ParentEmail: std.ParentEmail.String,
	}
}
