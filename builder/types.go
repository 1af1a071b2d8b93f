package builder

import "fmt"

// ReferenceAction is the referential action of a foreign key. The zero value
// leaves the action to the database default and omits the clause.
type ReferenceAction int

const (
	ActionUnspecified ReferenceAction = iota
	Restrict
	Cascade
	SetNull
	SetDefault
	NoAction
)

func (a ReferenceAction) String() string {
	switch a {
	case Restrict:
		return "RESTRICT"
	case Cascade:
		return "CASCADE"
	case SetNull:
		return "SET NULL"
	case SetDefault:
		return "SET DEFAULT"
	case NoAction:
		return "NO ACTION"
	}
	return ""
}

// ForeignKey references a column of another table
type ForeignKey struct {
	Table    string
	Column   string
	OnDelete ReferenceAction
	OnUpdate ReferenceAction
}

// ColumnSpec describes one column of a table to create
type ColumnSpec struct {
	Name     string
	Type     string
	Nullable bool

	// Default is rendered whenever it is non-nil. HasDefault is only needed
	// for an explicit DEFAULT NULL.
	Default    any
	HasDefault bool

	Unique     bool
	ForeignKey *ForeignKey
}

// WithDefault returns a copy of c with a default value
func (c ColumnSpec) WithDefault(v any) ColumnSpec {
	c.Default = v
	c.HasDefault = true
	return c
}

func (c ColumnSpec) hasDefault() bool {
	return c.HasDefault || c.Default != nil
}

// NoOptions as TableDefinition.Options suppresses the dialect's default
// table options.
const NoOptions = "-"

// TableDefinition describes a table for CreateTable
type TableDefinition struct {
	Name       string
	Columns    []ColumnSpec
	PrimaryKey []string

	// Options is appended after the column list. Empty selects the
	// dialect's default preset.
	Options string
}

// Statement is SQL text with its bound arguments in placeholder order
type Statement struct {
	sql  string
	args []any
}

// NewStatement builds a statement from raw SQL. The SQL must use the
// placeholder syntax of the target dialect.
func NewStatement(sql string, args ...any) Statement {
	return Statement{sql: sql, args: append([]any(nil), args...)}
}

func (s Statement) SQL() string { return s.sql }

// Args returns a copy of the bound arguments
func (s Statement) Args() []any {
	return append([]any(nil), s.args...)
}

// NumArgs returns the number of bound arguments
func (s Statement) NumArgs() int { return len(s.args) }

func (s Statement) String() string {
	return fmt.Sprintf("%s %v", s.sql, s.args)
}
