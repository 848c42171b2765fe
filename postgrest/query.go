package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
)

// Query is a table-scoped request builder. Filters are appended in call order
// so the encoded query string is deterministic, which is what the cache key
// convention relies on.
type Query struct {
	client *Client
	table  string
	method string
	body   any
	params []param
	single bool
}

type param struct {
	key   string
	value string
}

// From starts a query against the given table.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table, method: http.MethodGet}
}

// Select marks the query as a read. With no columns every column is returned.
func (q *Query) Select(columns ...string) *Query {
	q.method = http.MethodGet
	if len(columns) > 0 {
		q.params = append(q.params, param{"select", strings.Join(columns, ",")})
	}
	return q
}

// Insert marks the query as an insert of body (a row struct or slice of rows).
func (q *Query) Insert(body any) *Query {
	q.method = http.MethodPost
	q.body = body
	return q
}

// Update marks the query as a partial update with body as the patch.
func (q *Query) Update(body any) *Query {
	q.method = http.MethodPatch
	q.body = body
	return q
}

// Delete marks the query as a hard delete. Most entities are soft-deleted via
// Update instead; this exists for the few that are not.
func (q *Query) Delete() *Query {
	q.method = http.MethodDelete
	return q
}

// Eq filters rows where column equals value.
func (q *Query) Eq(column string, value any) *Query {
	q.params = append(q.params, param{column, "eq." + fmt.Sprint(value)})
	return q
}

// In filters rows where column is one of values.
func (q *Query) In(column string, values ...string) *Query {
	q.params = append(q.params, param{column, "in.(" + strings.Join(values, ",") + ")"})
	return q
}

// Or combines raw filter expressions disjunctively, e.g.
// Or("participant_one_id.eq.1", "participant_two_id.eq.1").
func (q *Query) Or(filters ...string) *Query {
	q.params = append(q.params, param{"or", "(" + strings.Join(filters, ",") + ")"})
	return q
}

// IsNull filters rows where column is null.
func (q *Query) IsNull(column string) *Query {
	q.params = append(q.params, param{column, "is.null"})
	return q
}

// Order sorts by column. Descending when desc is true.
func (q *Query) Order(column string, desc bool) *Query {
	dir := ".asc"
	if desc {
		dir = ".desc"
	}
	q.params = append(q.params, param{"order", column + dir})
	return q
}

// Range limits the result to rows [from, to], both inclusive.
func (q *Query) Range(from, to int) *Query {
	q.params = append(q.params, param{"offset", strconv.Itoa(from)})
	q.params = append(q.params, param{"limit", strconv.Itoa(to - from + 1)})
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.params = append(q.params, param{"limit", strconv.Itoa(n)})
	return q
}

// Single requests exactly one row as a bare object instead of an array.
// A query that matches no rows fails with ErrNoRows.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

// encode renders the query string preserving call order.
func (q *Query) encode() string {
	if len(q.params) == 0 {
		return ""
	}
	parts := make([]string, 0, len(q.params))
	for _, p := range q.params {
		parts = append(parts, neturl.QueryEscape(p.key)+"="+neturl.QueryEscape(p.value))
	}
	return strings.Join(parts, "&")
}

// Do executes the query and unmarshals the response into dest when dest is
// non-nil. Reads return arrays unless Single was requested; writes with
// return=representation behave the same way.
func (q *Query) Do(ctx context.Context, dest any) error {
	var headers map[string]string
	if q.single {
		headers = map[string]string{"Accept": "application/vnd.pgrst.object+json"}
	}

	data, err := q.client.request(ctx, q.method, q.table, q.body, q.encode(), headers)
	if err != nil {
		if q.single && isNoRowsStatus(err) {
			return ErrNoRows
		}
		return err
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", q.table, err)
	}
	return nil
}

// isNoRowsStatus reports whether err is the backend's "zero rows for a
// singular response" rejection (HTTP 406).
func isNoRowsStatus(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusNotAcceptable
}
