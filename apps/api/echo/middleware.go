package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/course"
)

// teacherMiddleware lets through users with a teacher role only.
func teacherMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Identity().IsTeacher() {
				return next(ctx)
			}
			return core.NewKindError(course.ErrForbidden, nil)
		}
	}
}
