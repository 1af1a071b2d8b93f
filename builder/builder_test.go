package builder

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/sheenazien8/sqpool/drivers"
)

func scenarioTable() TableDefinition {
	return TableDefinition{
		Name: "t",
		Columns: []ColumnSpec{
			{Name: "c1", Type: "varchar(255)"},
			{Name: "c2", Type: "integer"},
		},
		PrimaryKey: []string{"c1"},
	}
}

func TestCreateTableScenario(t *testing.T) {
	stmts, err := New(drivers.MySQL{}).CreateTable(scenarioTable())
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if got, want := len(stmts), 1; got != want {
		t.Fatalf("Expected %d statements, got %d", want, got)
	}

	want := "CREATE TABLE IF NOT EXISTS `t` (`c1` varchar(255) NOT NULL, `c2` integer NOT NULL, PRIMARY KEY (`c1`)) " +
		drivers.DefaultMySQLTableOptions
	if got := stmts[0].SQL(); got != want {
		t.Errorf("Unexpected DDL:\n got: %s\nwant: %s", got, want)
	}
	if strings.Contains(stmts[0].SQL(), "FOREIGN KEY") {
		t.Errorf("Expected no foreign key clause, got %s", stmts[0].SQL())
	}
	if n := stmts[0].NumArgs(); n != 0 {
		t.Errorf("Expected no arguments, got %d", n)
	}
}

func TestCreateTableDefaultsAreBound(t *testing.T) {
	def := TableDefinition{
		Name: "accounts",
		Columns: []ColumnSpec{
			{Name: "id", Type: "bigint"},
			ColumnSpec{Name: "status", Type: "varchar(16)"}.WithDefault("active'; DROP TABLE x; --"),
			ColumnSpec{Name: "note", Type: "text", Nullable: true}.WithDefault(nil),
			ColumnSpec{Name: "score", Type: "int"}.WithDefault(7),
		},
		PrimaryKey: []string{"id"},
		Options:    NoOptions,
	}

	stmts, err := New(drivers.MySQL{}).CreateTable(def)
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS `accounts` (`id` bigint NOT NULL, `status` varchar(16) NOT NULL DEFAULT ?, " +
		"`note` text NULL DEFAULT ?, `score` int NOT NULL DEFAULT ?, PRIMARY KEY (`id`))"
	if got := stmts[0].SQL(); got != want {
		t.Errorf("Unexpected DDL:\n got: %s\nwant: %s", got, want)
	}
	wantArgs := []any{"active'; DROP TABLE x; --", nil, 7}
	if got := stmts[0].Args(); !reflect.DeepEqual(got, wantArgs) {
		t.Errorf("Expected args %v, got %v", wantArgs, got)
	}

	// SQLite cannot bind DDL defaults, so they are escaped literals
	stmts, err = New(drivers.SQLite{}).CreateTable(def)
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if got := stmts[0].SQL(); !strings.Contains(got, `"status" varchar(16) NOT NULL DEFAULT 'active''; DROP TABLE x; --'`) {
		t.Errorf("Expected escaped literal default, got %s", got)
	}
	if n := stmts[0].NumArgs(); n != 0 {
		t.Errorf("Expected no arguments for sqlite, got %d", n)
	}
}

func TestCreateTableDefaultWithoutFlag(t *testing.T) {
	def := TableDefinition{
		Name: "t",
		Columns: []ColumnSpec{
			{Name: "id", Type: "int"},
			{Name: "status", Type: "varchar(8)", Default: "active"},
		},
		PrimaryKey: []string{"id"},
		Options:    NoOptions,
	}

	stmts, err := New(drivers.MySQL{}).CreateTable(def)
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS `t` (`id` int NOT NULL, `status` varchar(8) NOT NULL DEFAULT ?, PRIMARY KEY (`id`))"
	if got := stmts[0].SQL(); got != want {
		t.Errorf("Unexpected DDL:\n got: %s\nwant: %s", got, want)
	}
	if got, want := stmts[0].Args(), []any{"active"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected args %v, got %v", want, got)
	}

	stmts, err = New(drivers.MySQL{LiteralDefaults: true}).CreateTable(def)
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if got := stmts[0].SQL(); !strings.Contains(got, "`status` varchar(8) NOT NULL DEFAULT 'active'") {
		t.Errorf("Expected literal default, got %s", got)
	}
	if n := stmts[0].NumArgs(); n != 0 {
		t.Errorf("Expected no arguments with literal defaults, got %d", n)
	}
}

func TestCreateTableDottedColumnName(t *testing.T) {
	def := TableDefinition{
		Name: "shop.t",
		Columns: []ColumnSpec{
			{Name: "a.b", Type: "int", Unique: true},
			{Name: "ref", Type: "int", ForeignKey: &ForeignKey{Table: "shop.parent", Column: "x.y"}},
		},
		PrimaryKey: []string{"a.b"},
		Options:    NoOptions,
	}

	stmts, err := New(drivers.MySQL{}).CreateTable(def)
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS `shop`.`t` (`a.b` int NOT NULL, `ref` int NOT NULL, PRIMARY KEY (`a.b`), " +
		"CONSTRAINT `t_ref_foreign_key` FOREIGN KEY (`ref`) REFERENCES `shop`.`parent` (`x.y`))"
	if got := stmts[0].SQL(); got != want {
		t.Errorf("Unexpected DDL:\n got: %s\nwant: %s", got, want)
	}
	if got, want := stmts[1].SQL(), "CREATE UNIQUE INDEX IF NOT EXISTS `t_unique_a.b` ON `shop`.`t` (`a.b`)"; got != want {
		t.Errorf("Unexpected index:\n got: %s\nwant: %s", got, want)
	}

	stmt, err := New(drivers.PostgreSQL{}).MultiUpdate("t", []string{"a.b"}, []string{"a.b", "c.d"}, [][]any{{1, 2}})
	if err != nil {
		t.Fatalf("MultiUpdate failed: %v", err)
	}
	want = `INSERT INTO "t" ("a.b", "c.d") VALUES ($1,$2) ON CONFLICT ("a.b") DO UPDATE SET "c.d" = excluded."c.d"`
	if got := stmt.SQL(); got != want {
		t.Errorf("Unexpected upsert:\n got: %s\nwant: %s", got, want)
	}
}

func TestCreateTableUniqueAndForeignKeys(t *testing.T) {
	def := TableDefinition{
		Name: "orders",
		Columns: []ColumnSpec{
			{Name: "id", Type: "bigint"},
			{Name: "ref", Type: "varchar(32)", Unique: true},
			{Name: "customer_id", Type: "bigint", ForeignKey: &ForeignKey{
				Table: "customers", Column: "id", OnDelete: Cascade, OnUpdate: NoAction,
			}},
			{Name: "coupon_id", Type: "bigint", Nullable: true, Unique: true, ForeignKey: &ForeignKey{
				Table: "coupons", Column: "id", OnDelete: SetNull,
			}},
		},
		PrimaryKey: []string{"id"},
		Options:    "ENGINE=MyISAM",
	}

	stmts, err := New(drivers.MySQL{}).CreateTable(def)
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if got, want := len(stmts), 3; got != want {
		t.Fatalf("Expected %d statements, got %d", want, got)
	}

	ddl := stmts[0].SQL()
	for _, want := range []string{
		"CONSTRAINT `orders_customer_id_foreign_key` FOREIGN KEY (`customer_id`) REFERENCES `customers` (`id`) ON DELETE CASCADE ON UPDATE NO ACTION",
		"CONSTRAINT `orders_coupon_id_foreign_key` FOREIGN KEY (`coupon_id`) REFERENCES `coupons` (`id`) ON DELETE SET NULL)",
		") ENGINE=MyISAM",
	} {
		if !strings.Contains(ddl, want) {
			t.Errorf("Expected DDL to contain %q, got %s", want, ddl)
		}
	}

	wantIndexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS `orders_unique_ref` ON `orders` (`ref`)",
		"CREATE UNIQUE INDEX IF NOT EXISTS `orders_unique_coupon_id` ON `orders` (`coupon_id`)",
	}
	for i, want := range wantIndexes {
		if got := stmts[i+1].SQL(); got != want {
			t.Errorf("Index %d:\n got: %s\nwant: %s", i, got, want)
		}
	}
}

func TestCreateTableOptionsOverride(t *testing.T) {
	b := New(drivers.MySQL{}).WithTableOptions("ENGINE=InnoDB")
	stmts, err := b.CreateTable(scenarioTable())
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if got := stmts[0].SQL(); !strings.HasSuffix(got, ") ENGINE=InnoDB") {
		t.Errorf("Expected overridden options, got %s", got)
	}

	stmts, err = New(drivers.SQLite{}).CreateTable(scenarioTable())
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if got := stmts[0].SQL(); !strings.HasSuffix(got, `PRIMARY KEY ("c1"))`) {
		t.Errorf("Expected no options for sqlite, got %s", got)
	}
}

func TestCreateTableValidation(t *testing.T) {
	tests := []struct {
		name string
		def  TableDefinition
	}{
		{"no primary key", TableDefinition{Name: "t", Columns: []ColumnSpec{{Name: "a", Type: "int"}}}},
		{"no name", TableDefinition{Columns: []ColumnSpec{{Name: "a", Type: "int"}}, PrimaryKey: []string{"a"}}},
		{"no columns", TableDefinition{Name: "t", PrimaryKey: []string{"a"}}},
		{"unknown key column", TableDefinition{Name: "t", Columns: []ColumnSpec{{Name: "a", Type: "int"}}, PrimaryKey: []string{"b"}}},
		{"missing type", TableDefinition{Name: "t", Columns: []ColumnSpec{{Name: "a"}}, PrimaryKey: []string{"a"}}},
		{"duplicate column", TableDefinition{Name: "t", Columns: []ColumnSpec{{Name: "a", Type: "int"}, {Name: "a", Type: "int"}}, PrimaryKey: []string{"a"}}},
		{"incomplete foreign key", TableDefinition{Name: "t", Columns: []ColumnSpec{{Name: "a", Type: "int", ForeignKey: &ForeignKey{Table: "u"}}}, PrimaryKey: []string{"a"}}},
	}
	for _, tc := range tests {
		_, err := New(drivers.MySQL{}).CreateTable(tc.def)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
}

func TestMultiInsert(t *testing.T) {
	stmt, err := New(drivers.MySQL{}).MultiInsert("t", []string{"c1", "c2"}, [][]any{{"a", 1}, {"b", 2}})
	if err != nil {
		t.Fatalf("MultiInsert failed: %v", err)
	}
	if got, want := stmt.SQL(), "INSERT INTO `t` (`c1`, `c2`) VALUES (?,?),(?,?)"; got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
	if got, want := stmt.Args(), []any{"a", 1, "b", 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected args %v, got %v", want, got)
	}
}

func TestMultiInsertPlaceholderGroups(t *testing.T) {
	columns := []string{"a", "b", "c"}
	for n := 1; n <= 5; n++ {
		rows := make([][]any, n)
		var want []any
		for i := range rows {
			rows[i] = []any{i, i * 10, i * 100}
			want = append(want, i, i*10, i*100)
		}

		stmt, err := New(drivers.MySQL{}).MultiInsert("t", columns, rows)
		if err != nil {
			t.Fatalf("MultiInsert with %d rows failed: %v", n, err)
		}
		if got := strings.Count(stmt.SQL(), "(?,?,?)"); got != n {
			t.Errorf("Expected %d placeholder groups, got %d", n, got)
		}
		if got := stmt.NumArgs(); got != n*len(columns) {
			t.Errorf("Expected %d args, got %d", n*len(columns), got)
		}
		if got := stmt.Args(); !reflect.DeepEqual(got, want) {
			t.Errorf("Expected row-major args %v, got %v", want, got)
		}
	}
}

func TestMultiInsertPostgresNumbersPlaceholders(t *testing.T) {
	stmt, err := New(drivers.PostgreSQL{}).MultiInsert("t", nil, [][]any{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("MultiInsert failed: %v", err)
	}
	if got, want := stmt.SQL(), `INSERT INTO "t" VALUES ($1,$2),($3,$4)`; got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestMultiInsertValidation(t *testing.T) {
	b := New(drivers.MySQL{})
	tests := []struct {
		name    string
		columns []string
		rows    [][]any
	}{
		{"no rows", []string{"a"}, nil},
		{"short row", []string{"a", "b"}, [][]any{{1, 2}, {3}}},
		{"long row", []string{"a"}, [][]any{{1, 2}}},
		{"ragged rows without columns", nil, [][]any{{1, 2}, {3}}},
		{"empty first row without columns", nil, [][]any{{}}},
	}
	for _, tc := range tests {
		_, err := b.MultiInsert("t", tc.columns, tc.rows)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
}

func TestMultiUpdate(t *testing.T) {
	stmt, err := New(drivers.MySQL{}).MultiUpdate("t", []string{"c1"}, []string{"c1", "c2"}, [][]any{{"a", 9}})
	if err != nil {
		t.Fatalf("MultiUpdate failed: %v", err)
	}
	want := "INSERT INTO `t` (`c1`, `c2`) VALUES (?,?) ON DUPLICATE KEY UPDATE `c2` = VALUES(`c2`)"
	if got := stmt.SQL(); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
	if got, want := stmt.Args(), []any{"a", 9}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected args %v, got %v", want, got)
	}
}

func TestMultiUpdateKeepsColumnOrder(t *testing.T) {
	columns := []string{"z", "k2", "a", "k1", "m"}
	stmt, err := New(drivers.MySQL{}).MultiUpdate("t", []string{"k1", "k2"}, columns, [][]any{{1, 2, 3, 4, 5}})
	if err != nil {
		t.Fatalf("MultiUpdate failed: %v", err)
	}
	want := " ON DUPLICATE KEY UPDATE `z` = VALUES(`z`), `a` = VALUES(`a`), `m` = VALUES(`m`)"
	if got := stmt.SQL(); !strings.HasSuffix(got, want) {
		t.Errorf("Expected suffix %q, got %s", want, got)
	}
	if got, want := UpdateColumns([]string{"k1", "k2"}, columns), []string{"z", "a", "m"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestMultiUpdateValidation(t *testing.T) {
	b := New(drivers.MySQL{})
	if _, err := b.MultiUpdate("t", []string{"id"}, nil, [][]any{{1}}); err == nil {
		t.Errorf("Expected empty columns to fail")
	}
	if _, err := b.MultiUpdate("t", nil, []string{"id"}, [][]any{{1}}); err == nil {
		t.Errorf("Expected empty primary key to fail")
	}
	_, err := b.MultiUpdate("t", []string{"id"}, []string{"id", "v"}, [][]any{{1}})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Expected row/column mismatch to be a ValidationError, got %v", err)
	}
	if verr != nil && verr.Op != "multi update" {
		t.Errorf("Expected op %q, got %q", "multi update", verr.Op)
	}
}

func TestUseDatabase(t *testing.T) {
	stmt, err := New(drivers.MySQL{}).UseDatabase("shop")
	if err != nil {
		t.Fatalf("UseDatabase failed: %v", err)
	}
	if got, want := stmt.SQL(), "USE `shop`"; got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	_, err = New(drivers.SQLite{}).UseDatabase("shop")
	var uerr *UnsupportedError
	if !errors.As(err, &uerr) {
		t.Errorf("Expected UnsupportedError, got %v", err)
	}
}

func TestDropTable(t *testing.T) {
	stmt, err := New(drivers.PostgreSQL{}).DropTable("public.t", true)
	if err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}
	if got, want := stmt.SQL(), `DROP TABLE IF EXISTS "public"."t"`; got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestStatementArgsAreCopied(t *testing.T) {
	stmt := NewStatement("SELECT ?", 1)
	args := stmt.Args()
	args[0] = 2
	if got := stmt.Args()[0]; got != 1 {
		t.Errorf("Expected statement to be immutable, arg changed to %v", got)
	}
}
