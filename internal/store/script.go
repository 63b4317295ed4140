package store

import (
	"context"
	"fmt"
	"strings"
)

// ExecScript runs a SQL script statement by statement. Statements are
// separated by a semicolon at the end of a line; lines starting with "--" are
// ignored. It is meant for fixtures and migrations written by hand, not for
// arbitrary SQL.
func (s *Store) ExecScript(ctx context.Context, script string) error {
	for i, stmt := range SplitScript(script) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}

// SplitScript splits a script into statements without their trailing semicolon.
func SplitScript(script string) []string {
	var (
		stmts []string
		cur   strings.Builder
	)
	flush := func() {
		if stmt := strings.TrimSpace(cur.String()); stmt != "" {
			stmts = append(stmts, stmt)
		}
		cur.Reset()
	}

	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		if strings.HasSuffix(trimmed, ";") {
			cur.WriteString(strings.TrimSuffix(strings.TrimRight(line, " \t\r"), ";"))
			flush()
			continue
		}
		cur.WriteString(strings.TrimRight(line, "\r"))
	}
	flush()
	return stmts
}
