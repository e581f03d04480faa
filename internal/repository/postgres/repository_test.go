package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
)

func TestWhere_Placeholders(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	w := newWhere(domain.Tenant{OrgID: "org1", ProjectID: "proj1"})
	w.add("event_name = ANY(%s)", []string{"signup", "login"})
	w.dateRange(domain.DateRange{Start: &start})
	w.properties(map[string]string{"device": "web"})

	assert.Equal(t,
		"WHERE org_id = $1 AND project_id = $2 AND event_name = ANY($3) AND ts >= $4 AND properties->>$5 = $6",
		w.String())
	assert.Equal(t, []any{"org1", "proj1", []string{"signup", "login"}, start, "device", "web"}, w.args)
}

func TestWhere_PropertyOrderIsDeterministic(t *testing.T) {
	w := newWhere(domain.Tenant{})
	w.properties(map[string]string{"b": "2", "a": "1", "c": "3"})

	assert.Equal(t, []any{"", "", "a", "1", "b", "2", "c", "3"}, w.args)
}

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS events")
}
