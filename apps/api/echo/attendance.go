package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/classroom"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

type attendanceApi struct {
	svc      attendance.Service
	usrSvc   user.Service
	stdSvc   student.Service
	clsSvc   classroom.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := attendanceApi{
		svc:      deps.AttendanceSvc,
		usrSvc:   deps.UserSvc,
		stdSvc:   deps.StudentSvc,
		clsSvc:   deps.ClassRoomSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/attendance", jwt)
	ag.POST("", api.record, staffMiddleware())
	ag.GET("", api.query)
	ag.GET("/summary", api.summary)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update, staffMiddleware())
	ag.DELETE("/:id", api.destroy, staffMiddleware())
}

// Handlers

// record stores one attendance record. The recording teacher is always the
// authenticated user; a duplicate (student, subject, date) is a conflict.
func (api *attendanceApi) record(ctx echo.Context) error {
	var data attendance.NewAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttendance")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	att, err := api.svc.Record(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Attendance{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	if err := api.scopeFilter(ctx, filter); err != nil {
		return err
	}

	records, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if records == nil {
		records = []attendance.Attendance{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) summary(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	if err := api.scopeFilter(ctx, filter); err != nil {
		return err
	}

	summary, err := api.svc.Summary(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	att, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !(ctxUsr.IsAdmin() || ctxUsr.IsTeacher()) {
		std, err := api.stdSvc.GetByID(reqCtx, att.StudentID)
		if err != nil {
			return err
		}
		if err = auth.ReadStudent(ctxUsr, studentFacts(std)); err != nil {
			return err
		}
	}
	return ctx.JSON(http.StatusOK, att)
}

// update is open to admins, the recording teacher, and the homeroom teacher
// of the student's class.
func (api *attendanceApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	att, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = api.checkWrite(ctx, att); err != nil {
		return err
	}

	var data attendance.UpdateAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAttendance")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	att, err = api.svc.Update(reqCtx, att.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating attendance")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	att, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = api.checkWrite(ctx, att); err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), att.ID); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) checkWrite(ctx echo.Context, att attendance.Attendance) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	// a missing student or class only means "no homeroom teacher";
	// anything else must not masquerade as a permission denial
	reqCtx := ctx.Request().Context()
	var homeroomID string
	std, err := api.stdSvc.GetByID(reqCtx, att.StudentID)
	switch {
	case err == nil:
		cls, clsErr := api.clsSvc.GetByID(reqCtx, std.ClassID)
		switch {
		case clsErr == nil:
			homeroomID = cls.TeacherID.String
		case !errors.Is(clsErr, classroom.ErrNotFound):
			return errors.Wrap(clsErr, "finding student's class")
		}
	case !errors.Is(err, student.ErrNotFound):
		return errors.Wrap(err, "finding student")
	}
	return auth.WriteAttendance(ctxUsr, att.TeacherID, homeroomID)
}

// scopeFilter narrows the filter to what the caller may see: a student is
// pinned to their own record, a parent to a linked child they name.
func (api *attendanceApi) scopeFilter(ctx echo.Context, filter *attendance.QueryFilter) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if ctxUsr.IsAdmin() || ctxUsr.IsTeacher() {
		return nil
	}

	reqCtx := ctx.Request().Context()
	if ctxUsr.IsStudent() {
		std, err := api.stdSvc.GetByUserID(reqCtx, ctxUsr.ID)
		if err != nil {
			return err
		}
		filter.StudentID = std.ID
		return nil
	}
	if ctxUsr.IsParent() && filter.StudentID != "" {
		std, err := api.stdSvc.GetByID(reqCtx, filter.StudentID)
		if err != nil {
			return err
		}
		return auth.ReadStudent(ctxUsr, studentFacts(std))
	}
	return errHttpForbidden
}
