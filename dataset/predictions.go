package dataset

// Predictions is a tagged prediction set: either a single operating
// point (one table at one detection threshold) or an ordered sequence
// of tables, one per threshold, for multi-operating-point metrics.
// The tag is explicit so downstream scorers branch on it rather than
// inferring structure.
type Predictions struct {
	multi      bool
	tables     []*EventTable
	thresholds []float32
}

// SinglePoint wraps one prediction table as a single-operating-point
// prediction set.
func SinglePoint(t *EventTable) Predictions {
	return Predictions{tables: []*EventTable{t}}
}

// MultiPoint wraps an ordered sequence of prediction tables, one per
// threshold. tables[i] was decoded at thresholds[i].
func MultiPoint(tables []*EventTable, thresholds []float32) Predictions {
	return Predictions{multi: true, tables: tables, thresholds: thresholds}
}

// Multi reports whether the set carries multiple operating points.
func (p Predictions) Multi() bool {
	return p.multi
}

// Table returns the table of a single-operating-point set. For a
// multi-point set it returns the first table.
func (p Predictions) Table() *EventTable {
	if len(p.tables) == 0 {
		return NewEventTable(nil)
	}
	return p.tables[0]
}

// Tables returns all tables in threshold order.
func (p Predictions) Tables() []*EventTable {
	return p.tables
}

// Thresholds returns the thresholds of a multi-point set, aligned with
// Tables. It is nil for a single-point set.
func (p Predictions) Thresholds() []float32 {
	return p.thresholds
}

// FilterFiles applies the same filename subset to every table,
// preserving the tag and table order.
func (p Predictions) FilterFiles(keep map[string]struct{}) Predictions {
	out := Predictions{
		multi:      p.multi,
		tables:     make([]*EventTable, len(p.tables)),
		thresholds: p.thresholds,
	}
	for i, t := range p.tables {
		out.tables[i] = t.FilterFiles(keep)
	}
	return out
}
