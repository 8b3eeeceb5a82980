package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ssriya/grader/core"
	"github.com/ssriya/grader/core/gradebook"
	"github.com/ssriya/grader/services/spreadsheet"
)

// Estimate outlooks
const (
	OutlookAchievable   = "achievable"
	OutlookUnachievable = "unachievable"
	OutlookExceeded     = "exceeded"
)

type gradesApi struct {
	svc      *gradebook.Service
	validate *validator.Validate
}

// registerGradesAPI registers the estimate route on g and the grading routes on the
// authenticated classes group cg.
func registerGradesAPI(
	g *echo.Group,
	cg *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *gradebook.Service,
	validate *validator.Validate,
) {
	api := gradesApi{
		svc:      svc,
		validate: validate,
	}

	read := classMiddleware(svc, true)
	own := classMiddleware(svc, false)

	g.POST("/estimate", api.estimate, jwt)

	cg.PUT("/:id/grades", api.setGrade, own)
	cg.POST("/:id/grades/import", api.importGrades, own)
	cg.GET("/:id/gradebook.xlsx", api.exportGradebook, own)
	cg.GET("/:id/report", api.classReport, own)
	cg.GET("/:id/students/:studentID/report", api.studentReport, read)
	cg.POST("/:id/estimate", api.classEstimate, read)
}

func (api *gradesApi) setGrade(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}

	var data gradebook.SetGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grd, err := api.svc.SetGrade(ctx.Request().Context(), cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "setting grade")
	}
	return ctx.JSON(http.StatusOK, grd)
}

// importGrades sets the grades of an uploaded .xlsx sheet.
func (api *gradesApi) importGrades(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}

	f, err := bindUpload(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := spreadsheet.ReadGrades(f)
	if err != nil {
		return invalidUpload(err)
	}
	res, err := api.svc.ImportGrades(ctx.Request().Context(), cls.ID, rows)
	if err != nil {
		return errors.Wrap(err, "importing grades")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradesApi) exportGradebook(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}

	gb, err := api.svc.Gradebook(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "building gradebook")
	}
	var buf bytes.Buffer
	if err := spreadsheet.WriteGradebook(&buf, gb); err != nil {
		return errors.Wrap(err, "writing gradebook")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", cls.Name+".xlsx"))
	return ctx.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}

func (api *gradesApi) classReport(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}
	rpt, err := api.svc.ClassReport(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "computing class report")
	}
	return ctx.JSON(http.StatusOK, rpt)
}

// studentReport is served to the class owner and to the student the report is about.
func (api *gradesApi) studentReport(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	studentID := ctx.Param("studentID")
	if !isClassOwner(ctx) && studentID != claims.Subject {
		return errHttpForbidden
	}

	rpt, err := api.svc.StudentReport(ctx.Request().Context(), cls.ID, studentID)
	if err != nil {
		return errors.Wrap(err, "computing student report")
	}
	return ctx.JSON(http.StatusOK, rpt)
}

// estimate answers "what do I need on the rest" from a grade given in the request.
func (api *gradesApi) estimate(ctx echo.Context) error {
	var data EstimateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EstimateRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := gradebook.EstimateFrom(data.Current, data.Estimate)
	if err != nil {
		return errors.Wrap(err, "estimating required score")
	}
	return ctx.JSON(http.StatusOK, newEstimateResponse(res))
}

// classEstimate starts from the student's current grade in the class. Students estimate
// for themselves; the class owner names the student.
func (api *gradesApi) classEstimate(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data ClassEstimateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassEstimateRequest")
	}
	if !isClassOwner(ctx) {
		data.StudentID = claims.Subject
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Estimate(ctx.Request().Context(), cls.ID, data.StudentID, data.Estimate)
	if err != nil {
		return errors.Wrap(err, "estimating required score")
	}
	return ctx.JSON(http.StatusOK, newEstimateResponse(res))
}

// outlook tells whether a required score can still be earned.
func outlook(required float64) string {
	switch {
	case required > 100:
		return OutlookUnachievable
	case required < 0:
		return OutlookExceeded
	default:
		return OutlookAchievable
	}
}

type (
	EstimateRequest struct {
		Current null.Float64 `json:"current" validate:"omitempty,finitescore"`
		gradebook.Estimate
	}

	ClassEstimateRequest struct {
		StudentID string `json:"student_id" validate:"required"`
		gradebook.Estimate
	}

	EstimateResponse struct {
		gradebook.EstimateResult
		Outlook string `json:"outlook"`
	}
)

func (er *EstimateRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(er)
}

func (er *ClassEstimateRequest) Validate(validate *validator.Validate) error {
	er.StudentID = core.CleanString(er.StudentID)
	return validate.Struct(er)
}

func newEstimateResponse(res gradebook.EstimateResult) EstimateResponse {
	return EstimateResponse{EstimateResult: res, Outlook: outlook(res.Required)}
}
