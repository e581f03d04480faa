package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
)

const propertyPrefix = "prop."

// parseDateRange accepts RFC3339 timestamps or plain dates. A plain end date
// covers the whole day, up to the last nanosecond before the next midnight.
func parseDateRange(start, end string) (domain.DateRange, error) {
	var r domain.DateRange
	if start != "" {
		t, err := parseDate(start, false)
		if err != nil {
			return r, fmt.Errorf("%w: startDate: %v", domain.ErrQuery, err)
		}
		r.Start = &t
	}
	if end != "" {
		t, err := parseDate(end, true)
		if err != nil {
			return r, fmt.Errorf("%w: endDate: %v", domain.ErrQuery, err)
		}
		r.End = &t
	}
	return r, r.Validate()
}

func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC3339 nor YYYY-MM-DD", s)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

// propertyFilters collects prop.<key>=<value> query parameters
func propertyFilters(c *gin.Context) map[string]string {
	var filters map[string]string
	for key, values := range c.Request.URL.Query() {
		name, ok := strings.CutPrefix(key, propertyPrefix)
		if !ok || name == "" || len(values) == 0 {
			continue
		}
		if filters == nil {
			filters = make(map[string]string)
		}
		filters[name] = values[0]
	}
	return filters
}
