package records

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind enumerates the record collections exposed by the backend.
type Kind string

const (
	// KindStudent identifies student records.
	KindStudent Kind = "students"
	// KindNotice identifies general notices.
	KindNotice Kind = "general-notices"
	// KindAnnouncement identifies class announcements.
	KindAnnouncement Kind = "announcements"
)

const (
	FieldName               = "name"
	FieldBirthDate          = "birthDate"
	FieldRegistrationNumber = "registrationNumber"
	FieldClass              = "class"
	FieldNotice             = "notice"
	FieldAnnouncement       = "announcement"
)

const (
	maxIdentifierLength = 190
	storedDateSuffix    = "T00:00:00.000Z"
	dateLayout          = "2006-01-02"
)

var (
	// ErrInvalidRecordID indicates that a record identifier is empty or exceeds storage bounds.
	ErrInvalidRecordID = errors.New("records: invalid record id")
	// ErrInvalidRecord indicates that a record payload failed server-side canonicalization.
	ErrInvalidRecord = errors.New("records: invalid record")
	// ErrUnknownKind indicates a collection name outside the supported set.
	ErrUnknownKind = errors.New("records: unknown kind")
)

// ParseKind resolves a collection path or a short alias into a Kind.
func ParseKind(rawInput string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case string(KindStudent), "student":
		return KindStudent, nil
	case string(KindNotice), "notices", "notice":
		return KindNotice, nil
	case string(KindAnnouncement), "announcement":
		return KindAnnouncement, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, rawInput)
	}
}

// Collection returns the URL path segment of the kind.
func (k Kind) Collection() string {
	return string(k)
}

// NewRecordID validates raw input and returns a trimmed identifier.
func NewRecordID(rawInput string) (string, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidRecordID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidRecordID, maxIdentifierLength)
	}
	if trimmed == "." || trimmed == ".." || strings.Contains(trimmed, "/") {
		return "", fmt.Errorf("%w: %q is not a single path segment", ErrInvalidRecordID, trimmed)
	}
	return trimmed, nil
}

// Record is the read-side contract shared by every collection entry.
type Record interface {
	RecordID() string
	FieldValues() map[string]string
	Summary() string
}

// Entity is satisfied by pointers to record types and carries the server-side mutations.
type Entity[R any] interface {
	*R
	Record
	SetRecordID(id string)
	Canonicalize() error
}

// Student models a pupil registered in a class.
type Student struct {
	ID                 string `gorm:"column:id;primaryKey;size:190;not null" json:"_id,omitempty"`
	Name               string `gorm:"column:name;size:320;not null;default:''" json:"name"`
	BirthDate          string `gorm:"column:birth_date;size:64;not null;default:''" json:"birthDate"`
	RegistrationNumber string `gorm:"column:registration_number;size:64;not null;default:''" json:"registrationNumber"`
	Class              string `gorm:"column:class_name;size:64;not null;default:''" json:"class"`
}

// TableName provides the explicit table binding for GORM.
func (Student) TableName() string {
	return "students"
}

func (s Student) RecordID() string {
	return s.ID
}

func (s Student) FieldValues() map[string]string {
	return map[string]string{
		FieldName:               s.Name,
		FieldBirthDate:          s.BirthDate,
		FieldRegistrationNumber: s.RegistrationNumber,
		FieldClass:              s.Class,
	}
}

// Summary renders the list row shown for a student.
func (s Student) Summary() string {
	return fmt.Sprintf("%s - %s (Registration: %s)", s.Name, s.Class, s.RegistrationNumber)
}

func (s *Student) SetRecordID(id string) {
	s.ID = id
}

// Canonicalize stores the birth date as a UTC midnight timestamp.
func (s *Student) Canonicalize() error {
	s.Name = strings.TrimSpace(s.Name)
	s.RegistrationNumber = strings.TrimSpace(s.RegistrationNumber)
	s.Class = strings.TrimSpace(s.Class)
	birthDate, err := CanonicalBirthDate(s.BirthDate)
	if err != nil {
		return err
	}
	s.BirthDate = birthDate
	return nil
}

// Notice models a general notice shown to everyone.
type Notice struct {
	ID     string `gorm:"column:id;primaryKey;size:190;not null" json:"_id,omitempty"`
	Notice string `gorm:"column:notice;type:text;not null" json:"notice"`
}

// TableName provides the explicit table binding for GORM.
func (Notice) TableName() string {
	return "general_notices"
}

func (n Notice) RecordID() string {
	return n.ID
}

func (n Notice) FieldValues() map[string]string {
	return map[string]string{FieldNotice: n.Notice}
}

func (n Notice) Summary() string {
	return n.Notice
}

func (n *Notice) SetRecordID(id string) {
	n.ID = id
}

func (n *Notice) Canonicalize() error {
	if strings.TrimSpace(n.Notice) == "" {
		return fmt.Errorf("%w: notice text is required", ErrInvalidRecord)
	}
	return nil
}

// Announcement models a class announcement.
type Announcement struct {
	ID           string `gorm:"column:id;primaryKey;size:190;not null" json:"_id,omitempty"`
	Announcement string `gorm:"column:announcement;type:text;not null" json:"announcement"`
}

// TableName provides the explicit table binding for GORM.
func (Announcement) TableName() string {
	return "announcements"
}

func (a Announcement) RecordID() string {
	return a.ID
}

func (a Announcement) FieldValues() map[string]string {
	return map[string]string{FieldAnnouncement: a.Announcement}
}

func (a Announcement) Summary() string {
	return a.Announcement
}

func (a *Announcement) SetRecordID(id string) {
	a.ID = id
}

func (a *Announcement) Canonicalize() error {
	if strings.TrimSpace(a.Announcement) == "" {
		return fmt.Errorf("%w: announcement text is required", ErrInvalidRecord)
	}
	return nil
}

// CanonicalBirthDate accepts YYYY-MM-DD or RFC 3339 input and returns the stored timestamp form.
// Empty input stays empty.
func CanonicalBirthDate(rawInput string) (string, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", nil
	}
	parsed, err := time.Parse(dateLayout, trimmed)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, trimmed)
		if err != nil {
			return "", fmt.Errorf("%w: birth date %q", ErrInvalidRecord, rawInput)
		}
	}
	return parsed.UTC().Format(dateLayout) + storedDateSuffix, nil
}
