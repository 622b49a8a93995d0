package gateway

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// GormGateway executes statements on a directly connected database.
type GormGateway struct {
	db      *gorm.DB
	dialect Dialect
}

var _ Gateway = (*GormGateway)(nil)
var _ Pinger = (*GormGateway)(nil)

// NewGormGateway wraps an open gorm connection. The dialect is taken from
// the gorm dialector name.
func NewGormGateway(db *gorm.DB) *GormGateway {
	dialect := DialectSQLite
	if db.Dialector != nil && db.Dialector.Name() == "mysql" {
		dialect = DialectMySQL
	}
	return &GormGateway{db: db, dialect: dialect}
}

func (g *GormGateway) Dialect() Dialect {
	return g.dialect
}

func (g *GormGateway) Execute(ctx context.Context, sql string, params ...any) (*Result, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, fmt.Errorf("%w: sql cannot be empty", ErrInvalidParameter)
	}
	db := g.db.WithContext(ctx)

	if !returnsRows(sql) {
		tx := db.Exec(sql, params...)
		if tx.Error != nil {
			return nil, fmt.Errorf("%w: %v", ErrStatement, tx.Error)
		}
		return &Result{Meta: Meta{Changes: tx.RowsAffected}}, nil
	}

	rows, err := db.Raw(sql, params...).Rows()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStatement, err)
	}
	defer rows.Close()

	result := &Result{}
	for rows.Next() {
		row := map[string]any{}
		if err := db.ScanRows(rows, &row); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		result.Rows = append(result.Rows, Row(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStatement, err)
	}
	return result, nil
}

func (g *GormGateway) Ping(ctx context.Context) error {
	_, err := g.Execute(ctx, "SELECT 1")
	return err
}

func returnsRows(sql string) bool {
	head := strings.ToUpper(strings.TrimSpace(sql))
	for _, prefix := range []string{"SELECT", "WITH", "PRAGMA", "SHOW"} {
		if strings.HasPrefix(head, prefix) {
			return true
		}
	}
	return false
}
