package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ssriya/grader/core/gradebook"
)

const contextClassKey = "class"

func teacherMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsTeacher || claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// classMiddleware loads the class of the `:id` path param into the context.
// The teacher owning the class (or an admin) always passes. Enrolled students pass only
// when studentsAllowed is true; everyone else gets a 404.
func classMiddleware(svc *gradebook.Service, studentsAllowed bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			reqCtx := ctx.Request().Context()
			cls, err := svc.GetClass(reqCtx, ctx.Param("id"))
			if err != nil {
				if err == gradebook.ErrClassNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding class by ID")
			}
			ctx.Set(contextClassKey, cls)

			if cls.TeacherID == claims.Subject || claims.IsAdmin {
				return next(ctx)
			}
			if claims.IsStudent {
				enrolled, err := svc.IsEnrolled(reqCtx, cls.ID, claims.Subject)
				if err != nil {
					return errors.Wrap(err, "checking enrollment")
				}
				if enrolled {
					if studentsAllowed {
						return next(ctx)
					}
					return errHttpForbidden
				}
			}
			return errHttpNotFound
		}
	}
}

func getContextClass(ctx echo.Context) (gradebook.Class, error) {
	if cls, ok := ctx.Get(contextClassKey).(gradebook.Class); ok {
		return cls, nil
	}
	return gradebook.Class{}, errors.New("class not found in echo.Context")
}

// isClassOwner reports whether the authenticated user may manage the context class.
func isClassOwner(ctx echo.Context) bool {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return false
	}
	cls, err := getContextClass(ctx)
	if err != nil {
		return false
	}
	return cls.TeacherID == claims.Subject || claims.IsAdmin
}
