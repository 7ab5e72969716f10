package records

import "strings"

// Normalizer rewrites a stored field value into its editable form.
type Normalizer func(value string) string

// Schema describes how a collection is addressed and which fields its form carries.
type Schema struct {
	Kind        Kind
	Fields      []string
	Normalizers map[string]Normalizer
}

// StudentSchema drives the student screen.
var StudentSchema = Schema{
	Kind:   KindStudent,
	Fields: []string{FieldName, FieldBirthDate, FieldRegistrationNumber, FieldClass},
	Normalizers: map[string]Normalizer{
		FieldBirthDate: TrimTimestamp,
	},
}

// NoticeSchema drives the general notice screen.
var NoticeSchema = Schema{
	Kind:   KindNotice,
	Fields: []string{FieldNotice},
}

// AnnouncementSchema drives the announcement screen.
var AnnouncementSchema = Schema{
	Kind:   KindAnnouncement,
	Fields: []string{FieldAnnouncement},
}

// SchemaFor returns the schema registered for the kind.
func SchemaFor(kind Kind) (Schema, bool) {
	switch kind {
	case KindStudent:
		return StudentSchema, true
	case KindNotice:
		return NoticeSchema, true
	case KindAnnouncement:
		return AnnouncementSchema, true
	default:
		return Schema{}, false
	}
}

// HasField reports whether name is one of the schema's form fields.
func (s Schema) HasField(name string) bool {
	for _, field := range s.Fields {
		if field == name {
			return true
		}
	}
	return false
}

// Normalize applies the field's normalizer, if any.
func (s Schema) Normalize(field, value string) string {
	normalizer, ok := s.Normalizers[field]
	if !ok || normalizer == nil {
		return value
	}
	return normalizer(value)
}

// TrimTimestamp drops the time portion of an ISO 8601 timestamp, keeping the date.
func TrimTimestamp(value string) string {
	date, _, _ := strings.Cut(value, "T")
	return date
}
