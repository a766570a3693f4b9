package config

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brewcrafthq/brewery_backend/appctx"
)

// TenantGuardPlugin enforces multi-tenant isolation by automatically scoping
// queries/updates/deletes to the request's brewery_id when the model has a
// brewery_id column. It backstops the explicit WHERE filters the data layer
// already writes.
//
// NOTE: this does NOT apply to Raw SQL queries. Those must include
// brewery_id manually.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	// Query
	if err := db.Callback().Query().Before("gorm:query").Register("tenant_guard:query", tenantGuardCallback); err != nil {
		return err
	}
	// Row (First/Take)
	if err := db.Callback().Row().Before("gorm:row").Register("tenant_guard:row", tenantGuardCallback); err != nil {
		return err
	}
	// Update
	if err := db.Callback().Update().Before("gorm:update").Register("tenant_guard:update", tenantGuardCallback); err != nil {
		return err
	}
	// Delete
	if err := db.Callback().Delete().Before("gorm:delete").Register("tenant_guard:delete", tenantGuardCallback); err != nil {
		return err
	}
	return nil
}

func tenantGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	breweryId := breweryIdFromContext(ctx)
	if breweryId == "" {
		return
	}

	// Only apply if the current model/table includes a brewery_id column.
	if db.Statement.Schema == nil {
		return
	}
	hasBreweryId := false
	for _, f := range db.Statement.Schema.Fields {
		if strings.EqualFold(f.DBName, "brewery_id") {
			hasBreweryId = true
			break
		}
	}
	if !hasBreweryId {
		return
	}

	// Don't duplicate an explicit tenant filter.
	if whereHasBreweryId(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "brewery_id"},
				Value:  breweryId,
			},
		},
	})
}

func breweryIdFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(appctx.ContextKeyBreweryId).(string); ok && v != "" {
		return v
	}
	return ""
}

func whereHasBreweryId(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasBreweryId(e) {
			return true
		}
	}
	return false
}

func exprHasBreweryId(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsBreweryId(v.Column)
	case clause.Neq:
		return colIsBreweryId(v.Column)
	case clause.Gt:
		return colIsBreweryId(v.Column)
	case clause.Gte:
		return colIsBreweryId(v.Column)
	case clause.Lt:
		return colIsBreweryId(v.Column)
	case clause.Lte:
		return colIsBreweryId(v.Column)
	case clause.IN:
		return colIsBreweryId(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasBreweryId(x) {
				return true
			}
		}
		return false
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasBreweryId(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		// Best-effort for raw expressions.
		return strings.Contains(strings.ToLower(v.SQL), "brewery_id")
	default:
		return false
	}
}

func colIsBreweryId(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "brewery_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "brewery_id")
	default:
		return false
	}
}
