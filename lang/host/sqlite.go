package host

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/aislang/aisl/lang/gc"
	"github.com/aislang/aisl/lang/value"
	"github.com/aislang/aisl/lang/vm"
)

func sqliteOpen(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	db, err := sql.Open("sqlite", args[0].AsString())
	if err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	if err := db.Ping(); err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.NewHostHandle(h, value.HostSQLiteConn, db)), nil
}

func sqliteExec(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	db, ok := sqliteOf(args[0])
	if !ok {
		return value.NewErr(h, "sqlite_exec: not a sqlite connection handle"), nil
	}
	res, err := db.Exec(args[1].AsString())
	if err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	n, _ := res.RowsAffected()
	return value.NewOk(h, value.Int(n)), nil
}

// sqliteQuery runs a SELECT and returns an array of row maps, each column
// name mapped to its value rendered as a string (spec.md's value model has
// no room for a SQL driver's native column types, so every cell is
// coerced to the string AISL scripts can print or parse further).
func sqliteQuery(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	db, ok := sqliteOf(args[0])
	if !ok {
		return value.NewErr(h, "sqlite_query: not a sqlite connection handle"), nil
	}
	rows, err := db.Query(args[1].AsString())
	if err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return value.NewErr(h, err.Error()), nil
	}

	var out []value.Value
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return value.NewErr(h, err.Error()), nil
		}
		rowMap := value.NewMapValue(h)
		m := rowMap.AsMap()
		for i, col := range cols {
			m.Set(value.NewString(h, col), value.NewString(h, fmt.Sprintf("%v", raw[i])))
		}
		out = append(out, rowMap)
	}
	if err := rows.Err(); err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.NewArray(h, out)), nil
}

func sqliteClose(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	db, ok := sqliteOf(args[0])
	if !ok {
		return value.NewErr(h, "sqlite_close: not a sqlite connection handle"), nil
	}
	hh := args[0].AsHostHandle()
	if hh.Closed {
		return value.NewOk(h, value.UnitValue), nil
	}
	hh.Closed = true
	if err := db.Close(); err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.UnitValue), nil
}

func sqliteOf(v value.Value) (*sql.DB, bool) {
	if v.Tag() != value.HostHandleT {
		return nil, false
	}
	hh := v.AsHostHandle()
	if hh.Kind != value.HostSQLiteConn {
		return nil, false
	}
	db, ok := hh.Data.(*sql.DB)
	return db, ok
}
