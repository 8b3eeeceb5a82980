package echoapi

import (
	"io"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ssriya/grader/core"
)

const (
	uploadField = "file"
	dateParam   = "date"
	xlsxMIME    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var errMissingUpload = core.NewValidationError(nil, core.FieldError{Field: uploadField, Error: "this field is required"})

// bindUpload opens the spreadsheet uploaded in the multipart `file` field.
// The caller closes the returned reader.
func bindUpload(ctx echo.Context) (io.ReadCloser, error) {
	fh, err := ctx.FormFile(uploadField)
	if err != nil {
		return nil, errMissingUpload
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening uploaded file")
	}
	return f, nil
}

// bindDate reads the `date` query param, defaulting to today (UTC).
func bindDate(ctx echo.Context) (string, error) {
	date := core.CleanString(ctx.QueryParam(dateParam))
	if date == "" {
		return time.Now().UTC().Format(core.DateLayout), nil
	}
	if _, err := time.Parse(core.DateLayout, date); err != nil {
		return "", core.NewValidationError(nil, core.FieldError{
			Field: dateParam,
			Error: "date must be a date formatted as YYYY-MM-DD",
		})
	}
	return date, nil
}

// invalidUpload reports a spreadsheet that could not be read as a validation error.
func invalidUpload(err error) error {
	return core.NewValidationError(err, core.FieldError{Field: uploadField, Error: err.Error()})
}
