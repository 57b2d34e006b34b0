package duckdb

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tinytelemetry/edetail/internal/model"
)

// TotalEvents returns the number of stored clickstream events.
func (s *Store) TotalEvents() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clickstream`).Scan(&count)
	return count, err
}

// PageviewCounts returns the most viewed pages, most views first.
func (s *Store) PageviewCounts(limit int) ([]model.PageviewCount, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT page_id, arg_max(description, timestamp) AS description, COUNT(*) AS views
		FROM clickstream
		WHERE type = 'pageview'
		GROUP BY page_id
		ORDER BY views DESC, page_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PageviewCount
	for rows.Next() {
		var pc model.PageviewCount
		if err := rows.Scan(&pc.ID, &pc.Description, &pc.Count); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

// EventTypeCounts returns the number of events per event type.
func (s *Store) EventTypeCounts() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM clickstream GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var typ string
		var n int64
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		out[typ] = n
	}
	return out, rows.Err()
}

// DeleteBefore removes events recorded before cutoff.
func (s *Store) DeleteBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM clickstream WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// dangerousKeywordPattern matches write and extension keywords at word
// boundaries, so RESET does not match SET.
var dangerousKeywordPattern = regexp.MustCompile(
	`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|COPY|ATTACH|LOAD|EXPORT|IMPORT|INSTALL|CALL|EXECUTE|PRAGMA|SET)\b`,
)

var blockCommentPattern = regexp.MustCompile(`/\*[\s\S]*?\*/`)

func stripSQLComments(query string) string {
	cleaned := blockCommentPattern.ReplaceAllString(query, " ")
	var b strings.Builder
	for _, line := range strings.Split(cleaned, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

const maxQueryRows = 1000

// ExecuteQuery runs one read-only SELECT or WITH statement and returns at
// most 1000 rows.
func (s *Store) ExecuteQuery(query string) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(query)
	if strings.Contains(trimmed, ";") {
		return nil, fmt.Errorf("query must not contain semicolons")
	}

	stripped := strings.TrimSpace(stripSQLComments(trimmed))
	upper := strings.ToUpper(stripped)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return nil, fmt.Errorf("only SELECT/WITH queries are allowed")
	}
	if match := dangerousKeywordPattern.FindString(stripped); match != "" {
		return nil, fmt.Errorf("query contains disallowed keyword: %s", strings.ToUpper(match))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]any
	for rows.Next() && len(results) < maxQueryRows {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			s.log.Warn("duckdb: scan failed", "err", err)
			continue
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// SchemaDescription describes the queryable table for API clients.
func (s *Store) SchemaDescription() string {
	return `Table 'clickstream': seq (BIGINT), event_id (VARCHAR), received_at (TIMESTAMP), ` +
		`timestamp (TIMESTAMP), type (VARCHAR: pageview/video/...), page_id (VARCHAR), ` +
		`description (VARCHAR), session (VARCHAR).`
}

// TableRowCounts returns the row count of each queryable table.
func (s *Store) TableRowCounts() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	tables := []string{"clickstream"}
	counts := make(map[string]int64, len(tables))
	for _, table := range tables {
		var n int64
		// Table names come from the fixed list above.
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			return nil, err
		}
		counts[table] = n
	}
	return counts, nil
}
