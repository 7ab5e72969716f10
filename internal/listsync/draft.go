package listsync

import (
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/schoolboard/internal/records"
)

// ErrUnknownField indicates a field name outside the form's schema.
var ErrUnknownField = errors.New("listsync: unknown field")

// Mode tells whether the form drafts a new record or edits an existing one.
type Mode string

const (
	ModeCreating Mode = "creating"
	ModeEditing  Mode = "editing"
)

// draft holds the form values for a single record. editingID is empty in create mode.
type draft struct {
	schema    records.Schema
	values    map[string]string
	editingID string
}

func newDraft(schema records.Schema) draft {
	d := draft{schema: schema}
	d.beginCreate()
	return d
}

func (d *draft) beginCreate() {
	d.values = make(map[string]string, len(d.schema.Fields))
	for _, field := range d.schema.Fields {
		d.values[field] = ""
	}
	d.editingID = ""
}

// beginEdit replaces the whole draft with the record's normalized values.
func (d *draft) beginEdit(record records.Record) {
	source := record.FieldValues()
	d.values = make(map[string]string, len(d.schema.Fields))
	for _, field := range d.schema.Fields {
		d.values[field] = d.schema.Normalize(field, source[field])
	}
	d.editingID = record.RecordID()
}

func (d *draft) setField(name, value string) error {
	if !d.schema.HasField(name) {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	d.values[name] = value
	return nil
}

func (d *draft) reset() {
	d.beginCreate()
}

func (d draft) mode() Mode {
	if d.editingID == "" {
		return ModeCreating
	}
	return ModeEditing
}

func (d draft) fields() map[string]string {
	copied := make(map[string]string, len(d.values))
	for name, value := range d.values {
		copied[name] = value
	}
	return copied
}
