package api

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/teampulse/internal/analysis"
	"github.com/ZanzyTHEbar/teampulse/internal/errors"
)

// windowQuery reads days, start, end and tz
func windowQuery(c *gin.Context) (analysis.WindowQuery, error) {
	q := analysis.WindowQuery{
		Start:    c.Query("start"),
		End:      c.Query("end"),
		Timezone: c.Query("tz"),
	}
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			return q, errors.NewValidationError("days must be a positive integer", "days", raw)
		}
		q.Days = days
	}
	return q, nil
}

// intQuery reads an optional non-negative integer; zero means unset
func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.NewValidationError(name+" must be a non-negative integer", name, raw)
	}
	return v, nil
}

func floatQuery(c *gin.Context, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil, errors.NewValidationError(name+" must be a non-negative number", name, raw)
	}
	return &v, nil
}
