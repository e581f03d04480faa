package clickhouse

import (
	"slices"
	"strings"
	"time"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
)

// whereBuilder accumulates AND-ed conditions with positional ? arguments
type whereBuilder struct {
	conds []string
	args  []any
}

func newWhereBuilder(tenant domain.Tenant) *whereBuilder {
	return &whereBuilder{
		conds: []string{"org_id = ?", "project_id = ?"},
		args:  []any{tenant.OrgID, tenant.ProjectID},
	}
}

func (w *whereBuilder) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *whereBuilder) eventNames(names []string) {
	switch len(names) {
	case 0:
	case 1:
		w.add("event_name = ?", names[0])
	default:
		w.add("has(?, event_name)", names)
	}
}

func (w *whereBuilder) userIDs(ids []string) {
	switch len(ids) {
	case 0:
	case 1:
		w.add("user_id = ?", ids[0])
	default:
		w.add("has(?, user_id)", ids)
	}
}

func (w *whereBuilder) since(t time.Time) {
	w.add("timestamp >= fromUnixTimestamp64Milli(?, 'UTC')", t.UnixMilli())
}

func (w *whereBuilder) dateRange(r domain.DateRange) {
	if r.Start != nil {
		w.since(*r.Start)
	}
	if r.End != nil {
		w.add("timestamp <= fromUnixTimestamp64Milli(?, 'UTC')", r.End.UnixMilli())
	}
}

// properties compares scalar JSON values by their canonical string form:
// strings unquoted, numbers and booleans as raw JSON text.
func (w *whereBuilder) properties(filters map[string]string) {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		w.add("if(JSONType(properties, ?) = 'String', JSONExtractString(properties, ?), JSONExtractRaw(properties, ?)) = ?",
			k, k, k, filters[k])
	}
}

func (w *whereBuilder) String() string {
	return "WHERE " + strings.Join(w.conds, " AND ")
}
