package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/service"
)

// SearchMembers performs a case-insensitive substring search over member
// names, phone numbers and member codes. The LIKE pattern is escaped so that
// operator input containing % or _ matches literally.
func (s *SQLiteStorage) SearchMembers(ctx context.Context, search service.MemberSearch) ([]model.Member, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(search.Term, "term"); err != nil {
		return nil, err
	}

	pattern := "%" + escapeLike(search.Term) + "%"

	query := `
		SELECT m.id, m.sacco_id, COALESCE(m.ikimina_id, ''), m.full_name, m.member_code, m.msisdn,
		       COALESCE(i.name, '')
		FROM members m
		LEFT JOIN ibimina i ON m.ikimina_id = i.id
		WHERE (m.full_name LIKE ? ESCAPE '\'
		   OR m.msisdn LIKE ? ESCAPE '\'
		   OR m.member_code LIKE ? ESCAPE '\')
	`
	args := []any{pattern, pattern, pattern}

	if search.GroupID != "" {
		query += " AND m.ikimina_id = ?"
		args = append(args, search.GroupID)
	} else if search.SaccoID != "" {
		query += " AND m.sacco_id = ?"
		args = append(args, search.SaccoID)
	}

	query += " ORDER BY m.full_name"

	if search.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, search.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.SaccoID, &m.GroupID, &m.FullName, &m.MemberCode, &m.MSISDN, &m.GroupName); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// GetGroupsByCode returns the ibimina within saccoID matching code and status.
func (s *SQLiteStorage) GetGroupsByCode(ctx context.Context, code string, status model.GroupStatus, saccoID string) ([]model.Group, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(code, "code"); err != nil {
		return nil, err
	}
	if err := validateString(saccoID, "saccoID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sacco_id, code, name, status
		FROM ibimina
		WHERE code = ? AND status = ? AND sacco_id = ?
		ORDER BY id
	`, code, string(status), saccoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ibimina: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var groups []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.SaccoID, &g.Code, &g.Name, &g.Status); err != nil {
			return nil, fmt.Errorf("failed to scan ikimina: %w", err)
		}
		groups = append(groups, g)
	}

	return groups, rows.Err()
}

// SaveGroups upserts ibimina rows.
func (s *SQLiteStorage) SaveGroups(ctx context.Context, groups []model.Group) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateGroups(groups); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ibimina (id, sacco_id, code, name, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sacco_id = excluded.sacco_id,
			code = excluded.code,
			name = excluded.name,
			status = excluded.status
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, g := range groups {
		status := g.Status
		if status == "" {
			status = model.GroupActive
		}
		if _, err := stmt.ExecContext(ctx, g.ID, g.SaccoID, g.Code, g.Name, string(status)); err != nil {
			return fmt.Errorf("failed to upsert ikimina %s: %w", g.ID, err)
		}
	}

	return tx.Commit()
}

// SaveMembers upserts member rows.
func (s *SQLiteStorage) SaveMembers(ctx context.Context, members []model.Member) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMembers(members); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO members (id, sacco_id, ikimina_id, full_name, member_code, msisdn)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sacco_id = excluded.sacco_id,
			ikimina_id = excluded.ikimina_id,
			full_name = excluded.full_name,
			member_code = excluded.member_code,
			msisdn = excluded.msisdn
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, m := range members {
		if _, err := stmt.ExecContext(ctx, m.ID, m.SaccoID, nullString(m.GroupID), m.FullName, m.MemberCode, m.MSISDN); err != nil {
			return fmt.Errorf("failed to upsert member %s: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// escapeLike escapes LIKE wildcards so search terms match literally.
func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}
