package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/student"
)

// ImportResponse is the outcome of a roster import. Students is only set on dry runs.
type ImportResponse struct {
	student.ImportResult
	DryRun   bool                 `json:"dry_run"`
	Students []student.NewStudent `json:"students,omitempty"`
}

type studentApi struct {
	svc      student.Service
	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc student.Service, validate *validator.Validate) {
	api := studentApi{svc: svc, validate: validate}

	sg := g.Group("/students", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.POST("/import", api.importFile)

	dg := sg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/impact", api.impact)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	std, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) update(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data student.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

// impact tells what deleting the student would also delete.
func (api *studentApi) impact(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	impact, err := api.svc.DeletionImpact(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "counting student dependents")
	}
	return ctx.JSON(http.StatusOK, impact)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// importFile reads the multipart `file` (csv or xlsx). With `dry_run=true` nothing is inserted.
func (api *studentApi) importFile(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "this field is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()

	preview, err := student.ParseImportFile(f, fh.Filename)
	if err != nil {
		return err
	}

	if boolQueryParam(ctx, "dry_run") {
		return ctx.JSON(http.StatusOK, ImportResponse{
			ImportResult: student.ImportResult{Dropped: preview.Dropped},
			DryRun:       true,
			Students:     preview.Students,
		})
	}

	res, err := api.svc.Import(ctx.Request().Context(), preview.Students)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	res.Dropped = preview.Dropped
	return ctx.JSON(http.StatusCreated, ImportResponse{ImportResult: res})
}
