// Package builder turns table definitions and row sets into parameterized
// SQL statements. It performs no I/O; every identifier is quoted by the
// target dialect and every value travels as a bound argument unless the
// dialect cannot bind it.
package builder

import (
	"strings"

	"github.com/sheenazien8/sqpool/drivers"
)

// Builder builds statements for one dialect
type Builder struct {
	dialect      drivers.Dialect
	tableOptions string
}

func New(dialect drivers.Dialect) *Builder {
	return &Builder{dialect: dialect}
}

// WithTableOptions returns a builder that uses opts instead of the dialect's
// default CREATE TABLE options
func (b *Builder) WithTableOptions(opts string) *Builder {
	nb := *b
	nb.tableOptions = opts
	return &nb
}

func (b *Builder) Dialect() drivers.Dialect { return b.dialect }

// args accumulates bound arguments and hands out matching placeholders
type args struct {
	dialect drivers.Dialect
	values  []any
}

func (a *args) bind(v any) string {
	a.values = append(a.values, v)
	return a.dialect.Placeholder(len(a.values))
}

// CreateTable returns the CREATE TABLE statement for def followed by one
// CREATE UNIQUE INDEX statement per unique column, in column order.
func (b *Builder) CreateTable(def TableDefinition) ([]Statement, error) {
	const op = "create table"

	if err := validateTable(op, def); err != nil {
		return nil, err
	}

	d := b.dialect
	table := d.QuoteTable(def.Name)
	base := baseName(def.Name)
	bound := &args{dialect: d}

	clauses := make([]string, 0, len(def.Columns)+1)
	for _, c := range def.Columns {
		clauses = append(clauses, b.columnDef(c, bound))
	}
	clauses = append(clauses, "PRIMARY KEY ("+b.identList(def.PrimaryKey)+")")
	for _, c := range def.Columns {
		if c.ForeignKey == nil {
			continue
		}
		clauses = append(clauses, b.foreignKey(base, c))
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	sb.WriteString(table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(clauses, ", "))
	sb.WriteString(")")
	if opts := b.options(def.Options); opts != "" {
		sb.WriteString(" ")
		sb.WriteString(opts)
	}

	stmts := []Statement{{sql: sb.String(), args: bound.values}}
	for _, c := range def.Columns {
		if !c.Unique {
			continue
		}
		stmts = append(stmts, Statement{sql: "CREATE UNIQUE INDEX IF NOT EXISTS " +
			d.QuoteIdent(base+"_unique_"+c.Name) + " ON " + table + " (" + d.QuoteIdent(c.Name) + ")"})
	}
	return stmts, nil
}

func (b *Builder) columnDef(c ColumnSpec, bound *args) string {
	def := b.dialect.QuoteIdent(c.Name) + " " + c.Type
	if c.Nullable {
		def += " NULL"
	} else {
		def += " NOT NULL"
	}
	if c.hasDefault() {
		if b.dialect.BindsDDLDefaults() {
			def += " DEFAULT " + bound.bind(c.Default)
		} else {
			def += " DEFAULT " + b.dialect.QuoteLiteral(c.Default)
		}
	}
	return def
}

func (b *Builder) foreignKey(table string, c ColumnSpec) string {
	d := b.dialect
	fk := c.ForeignKey
	clause := "CONSTRAINT " + d.QuoteIdent(table+"_"+c.Name+"_foreign_key") +
		" FOREIGN KEY (" + d.QuoteIdent(c.Name) + ")" +
		" REFERENCES " + d.QuoteTable(fk.Table) + " (" + d.QuoteIdent(fk.Column) + ")"
	if a := fk.OnDelete.String(); a != "" {
		clause += " ON DELETE " + a
	}
	if a := fk.OnUpdate.String(); a != "" {
		clause += " ON UPDATE " + a
	}
	return clause
}

func (b *Builder) options(opts string) string {
	switch {
	case opts == NoOptions:
		return ""
	case opts != "":
		return opts
	case b.tableOptions != "":
		if b.tableOptions == NoOptions {
			return ""
		}
		return b.tableOptions
	}
	return b.dialect.DefaultTableOptions()
}

// MultiInsert returns one INSERT with a placeholder group per row and the
// rows flattened row-major into the arguments. columns may be nil, in which
// case every row must be as long as the first.
func (b *Builder) MultiInsert(table string, columns []string, rows [][]any) (Statement, error) {
	return b.multiInsert("multi insert", table, columns, rows)
}

func (b *Builder) multiInsert(op, table string, columns []string, rows [][]any) (Statement, error) {
	if table == "" {
		return Statement{}, invalid(op, "table name is empty")
	}
	if len(rows) == 0 {
		return Statement{}, invalid(op, "no rows to insert")
	}

	width := len(columns)
	if width == 0 {
		width = len(rows[0])
		if width == 0 {
			return Statement{}, invalid(op, "first row has no values")
		}
	}
	for i, row := range rows {
		if len(row) != width {
			if len(columns) > 0 {
				return Statement{}, invalid(op, "row %d has %d values, want %d (one per column)", i, len(row), width)
			}
			return Statement{}, invalid(op, "row %d has %d values, first row has %d", i, len(row), width)
		}
	}
	for i, c := range columns {
		if c == "" {
			return Statement{}, invalid(op, "column %d has no name", i)
		}
	}

	bound := &args{dialect: b.dialect, values: make([]any, 0, width*len(rows))}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.dialect.QuoteTable(table))
	if len(columns) > 0 {
		sb.WriteString(" (")
		sb.WriteString(b.identList(columns))
		sb.WriteString(")")
	}
	sb.WriteString(" VALUES ")
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(")
		for j, v := range row {
			if j > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(bound.bind(v))
		}
		sb.WriteString(")")
	}

	return Statement{sql: sb.String(), args: bound.values}, nil
}

// MultiUpdate returns an upsert: a MultiInsert whose rows overwrite the
// non-key columns of existing rows that collide on primaryKey. The update
// list is columns minus primaryKey, in columns order.
func (b *Builder) MultiUpdate(table string, primaryKey, columns []string, rows [][]any) (Statement, error) {
	const op = "multi update"

	if len(columns) == 0 {
		return Statement{}, invalid(op, "columns are required")
	}
	if len(primaryKey) == 0 {
		return Statement{}, invalid(op, "primary key is required")
	}

	stmt, err := b.multiInsert(op, table, columns, rows)
	if err != nil {
		return Statement{}, err
	}

	stmt.sql += " " + b.dialect.UpsertClause(primaryKey, UpdateColumns(primaryKey, columns))
	return stmt, nil
}

// UpdateColumns returns columns that are not part of primaryKey, keeping
// their order
func UpdateColumns(primaryKey, columns []string) []string {
	keys := make(map[string]struct{}, len(primaryKey))
	for _, k := range primaryKey {
		keys[k] = struct{}{}
	}
	update := make([]string, 0, len(columns))
	for _, c := range columns {
		if _, ok := keys[c]; !ok {
			update = append(update, c)
		}
	}
	return update
}

// DropTable returns DROP TABLE for table
func (b *Builder) DropTable(table string, ifExists bool) (Statement, error) {
	if table == "" {
		return Statement{}, invalid("drop table", "table name is empty")
	}
	sql := "DROP TABLE "
	if ifExists {
		sql += "IF EXISTS "
	}
	return Statement{sql: sql + b.dialect.QuoteTable(table)}, nil
}

// ListTables returns a query producing one table name per row
func (b *Builder) ListTables() Statement {
	return Statement{sql: b.dialect.ListTablesQuery()}
}

// UseDatabase returns the statement switching the session's database
func (b *Builder) UseDatabase(name string) (Statement, error) {
	if name == "" {
		return Statement{}, invalid("use database", "database name is empty")
	}
	sql, ok := b.dialect.UseDatabase(name)
	if !ok {
		return Statement{}, &UnsupportedError{Dialect: b.dialect.Name(), Feature: "switching databases"}
	}
	return Statement{sql: sql}, nil
}

func (b *Builder) identList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = b.dialect.QuoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

func validateTable(op string, def TableDefinition) error {
	if def.Name == "" {
		return invalid(op, "table name is empty")
	}
	if len(def.Columns) == 0 {
		return invalid(op, "table %s has no columns", def.Name)
	}
	if len(def.PrimaryKey) == 0 {
		return invalid(op, "table %s has no primary key", def.Name)
	}

	seen := make(map[string]struct{}, len(def.Columns))
	for i, c := range def.Columns {
		if c.Name == "" {
			return invalid(op, "column %d has no name", i)
		}
		if c.Type == "" {
			return invalid(op, "column %s has no type", c.Name)
		}
		if _, dup := seen[c.Name]; dup {
			return invalid(op, "column %s is defined twice", c.Name)
		}
		seen[c.Name] = struct{}{}
		if fk := c.ForeignKey; fk != nil && (fk.Table == "" || fk.Column == "") {
			return invalid(op, "foreign key on %s needs a table and a column", c.Name)
		}
	}
	for _, k := range def.PrimaryKey {
		if _, ok := seen[k]; !ok {
			return invalid(op, "primary key column %s is not a column of %s", k, def.Name)
		}
	}
	return nil
}

// baseName strips any schema qualifier from a table name
func baseName(table string) string {
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		return table[i+1:]
	}
	return table
}
