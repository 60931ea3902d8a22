package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

type dashboardApi struct {
	svc    report.Service
	usrSvc user.Service
	stdSvc student.Service
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := dashboardApi{
		svc:    deps.ReportSvc,
		usrSvc: deps.UserSvc,
		stdSvc: deps.StudentSvc,
	}

	dg := g.Group("/dashboard", jwt)
	dg.GET("/admin", api.admin, adminMiddleware())
	dg.GET("/teacher", api.teacher)
	dg.GET("/student", api.student)
}

// Handlers

func (api *dashboardApi) admin(ctx echo.Context) error {
	dash, err := api.svc.AdminDashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building admin dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *dashboardApi) teacher(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !(claims.IsTeacher || claims.IsAdmin) {
		return errHttpForbidden
	}

	dash, err := api.svc.TeacherDashboard(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "building teacher dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

// student serves the caller's own dashboard; admins, teachers and linked
// parents may name a student with ?student=<id>.
func (api *dashboardApi) student(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var std student.Student
	if id := ctx.QueryParam("student"); id != "" {
		if std, err = api.stdSvc.GetByID(reqCtx, id); err != nil {
			return err
		}
		if err = auth.ReadStudent(ctxUsr, studentFacts(std)); err != nil {
			return err
		}
	} else {
		if std, err = api.stdSvc.GetByUserID(reqCtx, ctxUsr.ID); err != nil {
			return err
		}
	}

	dash, err := api.svc.StudentDashboard(reqCtx, std.ID)
	if err != nil {
		return errors.Wrap(err, "building student dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}
