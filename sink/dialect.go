package sink

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rustyeddy/okxcandles/table"
)

type dialect struct {
	name        string
	numbered    bool // $1, $2 instead of ?
	types       map[table.Type]string
	nullable    func(string) string
	tableSuffix func(schema table.Schema) string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		name: DriverSQLite,
		types: map[table.Type]string{
			table.String:    "TEXT",
			table.Decimal:   "NUMERIC",
			table.Integer:   "INTEGER",
			table.Timestamp: "DATETIME",
		},
	},
	DriverPostgres: {
		name:     DriverPostgres,
		numbered: true,
		types: map[table.Type]string{
			table.String:    "TEXT",
			table.Decimal:   "NUMERIC",
			table.Integer:   "BIGINT",
			table.Timestamp: "TIMESTAMPTZ",
		},
	},
	DriverClickHouse: {
		name: DriverClickHouse,
		types: map[table.Type]string{
			table.String:    "String",
			table.Decimal:   "Decimal(38, 18)",
			table.Integer:   "Int64",
			table.Timestamp: "DateTime64(3, 'UTC')",
		},
		nullable: func(t string) string { return "Nullable(" + t + ")" },
		tableSuffix: func(schema table.Schema) string {
			return " ENGINE = MergeTree ORDER BY " + clickhouseOrderBy(schema)
		},
	},
}

func (d dialect) placeholder(i int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func (d dialect) insert(name string, cols []string) string {
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", name, strings.Join(cols, ", "), strings.Join(ph, ", "))
}

func (d dialect) create(name string, schema table.Schema) string {
	key := orderKey(schema)
	defs := make([]string, len(schema))
	for i, c := range schema {
		typ := d.types[c.Type]
		if d.nullable != nil && !slices.Contains(key, c.Name) {
			typ = d.nullable(typ)
		}
		defs[i] = c.Name + " " + typ
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", name, strings.Join(defs, ",\n\t"))
	if d.tableSuffix != nil {
		stmt += d.tableSuffix(schema)
	}
	return stmt
}

// orderKey is (ticker, ts) when the schema has both.
func orderKey(schema table.Schema) []string {
	_, hasTicker := schema.Lookup("ticker")
	_, hasTS := schema.Lookup("ts")
	if hasTicker && hasTS {
		return []string{"ticker", "ts"}
	}
	return nil
}

func clickhouseOrderBy(schema table.Schema) string {
	if key := orderKey(schema); key != nil {
		return "(" + strings.Join(key, ", ") + ")"
	}
	return "tuple()"
}
