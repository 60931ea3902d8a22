package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

type gradeApi struct {
	svc      grade.Service
	usrSvc   user.Service
	stdSvc   student.Service
	validate *validator.Validate
}

func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := gradeApi{
		svc:      deps.GradeSvc,
		usrSvc:   deps.UserSvc,
		stdSvc:   deps.StudentSvc,
		validate: deps.Validate,
	}

	gg := g.Group("/grades", jwt)
	gg.POST("", api.create, staffMiddleware())
	gg.GET("", api.query)
	gg.GET("/average", api.average)
	gg.GET("/:id", api.retrieve)
	gg.PUT("/:id", api.update, staffMiddleware())
	gg.DELETE("/:id", api.destroy, staffMiddleware())
}

// Handlers

// create records a grade. The recording teacher is always the authenticated
// user; the final grade and letter are derived server-side.
func (api *gradeApi) create(ctx echo.Context) error {
	var data grade.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	g, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "recording grade")
	}
	return ctx.JSON(http.StatusCreated, g)
}

func (api *gradeApi) query(ctx echo.Context) error {
	filter := new(grade.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []grade.Grade{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	if err := api.scopeFilter(ctx, filter); err != nil {
		return err
	}

	grades, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if grades == nil {
		grades = []grade.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *gradeApi) average(ctx echo.Context) error {
	filter := new(grade.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	if err := api.scopeFilter(ctx, filter); err != nil {
		return err
	}

	avg, err := api.svc.Average(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "averaging grades")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"average": avg})
}

func (api *gradeApi) retrieve(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	g, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !(ctxUsr.IsAdmin() || ctxUsr.IsTeacher()) {
		std, err := api.stdSvc.GetByID(reqCtx, g.StudentID)
		if err != nil {
			return err
		}
		if err = auth.ReadStudent(ctxUsr, studentFacts(std)); err != nil {
			return err
		}
	}
	return ctx.JSON(http.StatusOK, g)
}

// update is open to admins and to the teacher who recorded the grade.
func (api *gradeApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	g, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = auth.WriteGrade(ctxUsr, g.TeacherID); err != nil {
		return err
	}

	var data grade.UpdateGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	g, err = api.svc.Update(reqCtx, g.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *gradeApi) destroy(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	g, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = auth.WriteGrade(ctxUsr, g.TeacherID); err != nil {
		return err
	}

	if err := api.svc.Delete(reqCtx, g.ID); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// scopeFilter narrows the filter to what the caller may see: a teacher is
// pinned to the grades they recorded, a student to their own record, a parent
// to a linked child they name. Only admins query unscoped.
func (api *gradeApi) scopeFilter(ctx echo.Context, filter *grade.QueryFilter) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if ctxUsr.IsAdmin() {
		return nil
	}
	if ctxUsr.IsTeacher() {
		filter.TeacherID = ctxUsr.ID // overrides any ?teacher= param
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
