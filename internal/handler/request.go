package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// dateLayout is the accepted format for calendar dates in request bodies
const dateLayout = "2006-01-02"

// parseDecimal parses a required decimal string field
func parseDecimal(field, value string) (decimal.Decimal, *ValidationError) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, &ValidationError{Field: field, Message: "Must be a valid decimal number"}
	}
	return d, nil
}

// parseOptionalDecimal parses a decimal field that may be omitted
func parseOptionalDecimal(field string, value *string) (*decimal.Decimal, *ValidationError) {
	if value == nil || *value == "" {
		return nil, nil
	}
	d, verr := parseDecimal(field, *value)
	if verr != nil {
		return nil, verr
	}
	return &d, nil
}

// parseOptionalDate accepts YYYY-MM-DD or RFC3339
func parseOptionalDate(field string, value *string) (*time.Time, *ValidationError) {
	if value == nil || *value == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, *value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil, &ValidationError{Field: field, Message: "Must be YYYY-MM-DD or RFC3339"}
	}
	t = t.UTC()
	return &t, nil
}

// maxDays bounds day-count fields to 100 years
const maxDays = 36500

// parseDays converts a whole number of days into a duration
func parseDays(field string, days int) (time.Duration, *ValidationError) {
	if days < 0 || days > maxDays {
		return 0, &ValidationError{Field: field, Message: "Must be between 0 and " + strconv.Itoa(maxDays)}
	}
	return time.Duration(days) * 24 * time.Hour, nil
}

// parseGoalID reads the :id path parameter
func parseGoalID(c echo.Context) (domain.GoalID, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return domain.GoalID(id), true
}

// collect drops nil entries so handlers can accumulate field errors
func collect(errs ...*ValidationError) []ValidationError {
	var out []ValidationError
	for _, e := range errs {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out
}
