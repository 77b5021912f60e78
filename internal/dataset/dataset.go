package dataset

import (
	"time"

	"github.com/google/uuid"
)

// Dataset is an immutable snapshot of company records. Filtered views share
// the snapshot's ID, source and load time.
type Dataset struct {
	id       string
	source   string
	loadedAt time.Time
	records  []Company
}

// New builds a snapshot from records. The slice is copied.
func New(source string, records []Company) *Dataset {
	cp := make([]Company, len(records))
	copy(cp, records)
	return &Dataset{
		id:       uuid.NewString(),
		source:   source,
		loadedAt: time.Now().UTC(),
		records:  cp,
	}
}

func (d *Dataset) ID() string {
	if d == nil {
		return ""
	}
	return d.id
}

func (d *Dataset) Source() string {
	if d == nil {
		return ""
	}
	return d.source
}

func (d *Dataset) LoadedAt() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.loadedAt
}

// Len returns the number of records. A nil dataset is empty.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// At returns the i-th record by value.
func (d *Dataset) At(i int) Company { return d.records[i] }

// Records returns a copy of all records in insertion order.
func (d *Dataset) Records() []Company {
	if d == nil {
		return nil
	}
	out := make([]Company, len(d.records))
	copy(out, d.records)
	return out
}

// Where returns a view holding the records for which keep is true,
// in their original order.
func (d *Dataset) Where(keep func(Company) bool) *Dataset {
	if d == nil {
		return nil
	}
	out := make([]Company, 0, len(d.records))
	for _, c := range d.records {
		if keep(c) {
			out = append(out, c)
		}
	}
	return &Dataset{id: d.id, source: d.source, loadedAt: d.loadedAt, records: out}
}
