package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/classroom"
	"github.com/trezcool/shule/core/user"
)

type classRoomApi struct {
	svc      classroom.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerClassRoomAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := classRoomApi{
		svc:      deps.ClassRoomSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/classes", jwt)
	cg.POST("", api.create, adminMiddleware())
	cg.GET("", api.query)
	cg.DELETE("", api.destroyMultiple, adminMiddleware())
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy, adminMiddleware())
	cg.GET("/:id/roster", api.roster)
	cg.POST("/:id/students", api.moveStudents)
}

// Handlers

func (api *classRoomApi) create(ctx echo.Context) error {
	var data classroom.NewClassRoom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassRoom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classRoomApi) query(ctx echo.Context) error {
	filter := new(classroom.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []classroom.ClassRoom{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	classes, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []classroom.ClassRoom{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classRoomApi) retrieve(ctx echo.Context) error {
	cls, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

// update is open to admins and to the class' homeroom teacher.
func (api *classRoomApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	cls, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = auth.ManageClass(ctxUsr, cls.TeacherID.String); err != nil {
		return err
	}

	var data classroom.UpdateClassRoom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClassRoom")
	}
	// homeroom re-assignment stays an admin move
	if !ctxUsr.IsAdmin() && data.TeacherID != nil {
		return errHttpForbidden
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err = api.svc.Update(reqCtx, cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classRoomApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classRoomApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting classes")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classRoomApi) roster(ctx echo.Context) error {
	roster, err := api.svc.GetRoster(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, roster)
}

// moveStudents re-assigns a batch of students to the class: admins or the
// homeroom teacher, refused wholesale when capacity would be exceeded.
func (api *classRoomApi) moveStudents(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	cls, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = auth.ManageClass(ctxUsr, cls.TeacherID.String); err != nil {
		return err
	}

	var data classroom.MoveStudents
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MoveStudents")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.MoveStudents(reqCtx, cls.ID, data.StudentIDs...); err != nil {
		return errors.Wrap(err, "moving students")
	}
	return ctx.NoContent(http.StatusNoContent)
}
