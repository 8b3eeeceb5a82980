package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ssriya/grader/core/gradebook"
	"github.com/ssriya/grader/services/spreadsheet"
)

type classApi struct {
	svc      *gradebook.Service
	validate *validator.Validate
}

// registerClassAPI registers the class routes on the authenticated classes group cg.
func registerClassAPI(
	cg *echo.Group,
	svc *gradebook.Service,
	validate *validator.Validate,
) {
	api := classApi{
		svc:      svc,
		validate: validate,
	}

	cg.GET("", api.query)
	cg.POST("", api.create, teacherMiddleware())

	// enrolled students may read, only the class owner may write
	read := classMiddleware(svc, true)
	own := classMiddleware(svc, false)

	cg.GET("/:id", api.retrieve, read)
	cg.PUT("/:id", api.update, own)
	cg.DELETE("/:id", api.destroy, own)

	cg.GET("/:id/students", api.queryStudents, own)
	cg.POST("/:id/students", api.enroll, own)
	cg.POST("/:id/students/import", api.importRoster, own)
	cg.DELETE("/:id/students/:studentID", api.unenroll, own)

	cg.GET("/:id/categories", api.queryCategories, read)
	cg.POST("/:id/categories", api.addCategory, own)
	cg.PUT("/:id/categories/:categoryID", api.updateCategory, own)
	cg.DELETE("/:id/categories/:categoryID", api.destroyCategory, own)

	cg.GET("/:id/assignments", api.queryAssignments, read)
	cg.POST("/:id/assignments", api.addAssignment, own)
	cg.DELETE("/:id/assignments/:assignmentID", api.destroyAssignment, own)

	cg.GET("/:id/attendance", api.queryAttendance, own)
	cg.PUT("/:id/attendance", api.markAttendance, own)
	cg.GET("/:id/attendance/summary", api.attendanceSummary, own)

	cg.GET("/:id/materials", api.queryMaterials, read)
	cg.POST("/:id/materials", api.addMaterial, own)
	cg.DELETE("/:id/materials/:materialID", api.destroyMaterial, own)
}

// Classes

// query lists the classes a teacher teaches or a student attends.
func (api *classApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	reqCtx := ctx.Request().Context()
	if claims.IsTeacher {
		classes, err := api.svc.TeacherClasses(reqCtx, claims.Subject)
		if err != nil {
			return errors.Wrap(err, "querying teacher classes")
		}
		return ctx.JSON(http.StatusOK, classes)
	}
	classes, err := api.svc.StudentClasses(reqCtx, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying student classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data gradebook.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.CreateClass(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) update(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}

	var data gradebook.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err = api.svc.UpdateClass(ctx.Request().Context(), cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteClass(ctx.Request().Context(), cls.ID); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Students

func (api *classApi) queryStudents(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}
	roster, err := api.svc.Roster(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "querying roster")
	}
	return ctx.JSON(http.StatusOK, roster)
}

func (api *classApi) enroll(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}

	var data gradebook.Enroll
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Enroll")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

// importRoster enrolls the students listed in an uploaded .xlsx roster.
func (api *classApi) importRoster(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}

	f, err := bindUpload(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := spreadsheet.ReadRoster(f)
	if err != nil {
		return invalidUpload(err)
	}
	emails := make([]string, 0, len(rows))
	for _, row := range rows {
		emails = append(emails, row.Email)
	}

	res, err := api.svc.EnrollMany(ctx.Request().Context(), cls.ID, emails)
	if err != nil {
		return errors.Wrap(err, "importing roster")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *classApi) unenroll(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Unenroll(ctx.Request().Context(), cls.ID, ctx.Param("studentID")); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Categories

func (api *classApi) queryCategories(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}
	cats, err := api.svc.Categories(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "querying categories")
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *classApi) addCategory(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}

	var data gradebook.NewCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCategory")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cat, err := api.svc.AddCategory(ctx.Request().Context(), cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding category")
	}
	return ctx.JSON(http.StatusCreated, cat)
}

func (api *classApi) updateCategory(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}

	var data gradebook.UpdateCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCategory")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cat, err := api.svc.UpdateCategory(ctx.Request().Context(), cls.ID, ctx.Param("categoryID"), data)
	if err != nil {
		return errors.Wrap(err, "updating category")
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *classApi) destroyCategory(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteCategory(ctx.Request().Context(), cls.ID, ctx.Param("categoryID")); err != nil {
		return errors.Wrap(err, "deleting category")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Assignments

func (api *classApi) queryAssignments(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}
	asgs, err := api.svc.Assignments(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *classApi) addAssignment(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}

	var data gradebook.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.svc.AddAssignment(ctx.Request().Context(), cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *classApi) destroyAssignment(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteAssignment(ctx.Request().Context(), cls.ID, ctx.Param("assignmentID")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Attendance

func (api *classApi) queryAttendance(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}
	date, err := bindDate(ctx)
	if err != nil {
		return err
	}
	entries, err := api.svc.AttendanceOn(ctx.Request().Context(), cls.ID, date)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *classApi) markAttendance(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}

	var data gradebook.MarkAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkAttendance")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	att, err := api.svc.MarkAttendance(ctx.Request().Context(), cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *classApi) attendanceSummary(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}
	summary, err := api.svc.AttendanceSummary(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "summarising attendance")
	}
	return ctx.JSON(http.StatusOK, summary)
}

// Materials

func (api *classApi) queryMaterials(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}
	materials, err := api.svc.Materials(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	return ctx.JSON(http.StatusOK, materials)
}

func (api *classApi) addMaterial(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}

	var data gradebook.NewMaterial
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMaterial")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mat, err := api.svc.AddMaterial(ctx.Request().Context(), cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding material")
	}
	return ctx.JSON(http.StatusCreated, mat)
}

func (api *classApi) destroyMaterial(ctx echo.Context) error {
	cls, err := getContextClass(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteMaterial(ctx.Request().Context(), cls.ID, ctx.Param("materialID")); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return ctx.NoContent(http.StatusNoContent)
}
