package ir

// Row is one flat result row: an ordered mapping from result-column name to
// value. Column order is the order columns were first set, which for rows
// read from a database is the select-list order.
type Row struct {
	columns []string
	values  map[string]IRValue
}

// NewRow creates a row from alternating column names and values.
//
//	NewRow(O("p_id", IRInt(1)), O("p_name", IRString("Cafe")))
func NewRow(pairs ...IRPair) Row {
	r := Row{
		columns: make([]string, 0, len(pairs)),
		values:  make(map[string]IRValue, len(pairs)),
	}
	for _, p := range pairs {
		r.Set(p.Key, p.Value)
	}
	return r
}

// Set assigns a value to a column, appending the column if it is new.
// A nil value is stored as IRNull.
func (r *Row) Set(column string, v IRValue) {
	if r.values == nil {
		r.values = make(map[string]IRValue)
	}
	if v == nil {
		v = IRNull{}
	}
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = v
}

// Get returns the value of a column and whether the column exists.
// A present column holding SQL NULL returns (IRNull{}, true).
func (r Row) Get(column string) (IRValue, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Columns returns the column names in order.
func (r Row) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.columns)
}
