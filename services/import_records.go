package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// InvalidBatchError rejects a whole import request before any record is touched
type InvalidBatchError struct {
	Reason string
}

func (e *InvalidBatchError) Error() string {
	return e.Reason
}

func invalidBatch(format string, args ...interface{}) error {
	return &InvalidBatchError{Reason: fmt.Sprintf(format, args...)}
}

// RecordValidationError is a per-record validation failure (missing or malformed field)
type RecordValidationError struct {
	Field   string
	Message string
}

func (e *RecordValidationError) Error() string {
	return e.Message
}

func missingField(name string) error {
	return &RecordValidationError{Field: name, Message: fmt.Sprintf("missing required field `%s`", name)}
}

func invalidField(name string, raw string) error {
	return &RecordValidationError{Field: name, Message: fmt.Sprintf("invalid value for field `%s`: %q", name, raw)}
}

// NumericField keeps a JSON number or numeric string unparsed so a bad value
// fails only the record that carries it. null and "" count as absent.
type NumericField struct {
	raw string
	set bool
}

// NumericFromString builds a field from text input such as a CSV cell
func NumericFromString(s string) NumericField {
	s = strings.TrimSpace(s)
	if s == "" {
		return NumericField{}
	}
	return NumericField{raw: s, set: true}
}

// NumericFromInt builds a present field holding v
func NumericFromInt(v int) NumericField {
	return NumericField{raw: strconv.Itoa(v), set: true}
}

func (n *NumericField) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = NumericField{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*n = NumericFromString(str)
		return nil
	}
	*n = NumericField{raw: s, set: true}
	return nil
}

func (n NumericField) MarshalJSON() ([]byte, error) {
	if !n.set {
		return []byte("null"), nil
	}
	return json.Marshal(n.raw)
}

// IsSet reports whether the field was present and non-empty
func (n NumericField) IsSet() bool {
	return n.set
}

// Raw returns the unparsed text
func (n NumericField) Raw() string {
	return n.raw
}

// Int parses the field as a base-10 integer
func (n NumericField) Int() (int, error) {
	return strconv.Atoi(n.raw)
}

// Float parses the field as a floating-point value
func (n NumericField) Float() (float64, error) {
	return strconv.ParseFloat(n.raw, 64)
}

// Semester parses an integer semester, accepting "Y-T" (year-term) as (Y-1)*2+T
func (n NumericField) Semester() (int, error) {
	if year, term, ok := strings.Cut(n.raw, "-"); ok {
		y, err := strconv.Atoi(strings.TrimSpace(year))
		if err != nil {
			return 0, err
		}
		t, err := strconv.Atoi(strings.TrimSpace(term))
		if err != nil {
			return 0, err
		}
		return (y-1)*2 + t, nil
	}
	return n.Int()
}

// AnswerRecord is the optional answer nested in an imported question
type AnswerRecord struct {
	Content     string `json:"content"`
	Source      string `json:"source"`
	Contributor string `json:"contributor"`
}

// QuestionRecord is one candidate question in a bulk import
type QuestionRecord struct {
	CourseID   string        `json:"courseId"`
	Year       NumericField  `json:"year"`
	ExamType   string        `json:"examType"`
	QuestionNo NumericField  `json:"questionNo"`
	Marks      NumericField  `json:"marks"`
	Content    string        `json:"content"`
	Answer     *AnswerRecord `json:"answer"`

	decodeErr error
}

// QuestionDefaults are batch-level values applied to records that omit them
type QuestionDefaults struct {
	CourseID string       `json:"courseId"`
	Year     NumericField `json:"year"`
	ExamType string       `json:"examType"`
}

// QuestionBatch is a decoded bulk question request
type QuestionBatch struct {
	QuestionDefaults
	Questions []QuestionRecord
}

// CourseRecord is one candidate course in a bulk import
type CourseRecord struct {
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	Slug         string       `json:"slug"`
	DepartmentID string       `json:"departmentId"`
	Credits      NumericField `json:"credits"`
	Semester     NumericField `json:"semester"`

	decodeErr error
}

// CourseBatch is a decoded bulk course request
type CourseBatch struct {
	DepartmentID string
	Courses      []CourseRecord
}

// ErrInvalidJSON marks a body that is not valid JSON at all
var ErrInvalidJSON = errors.New("Invalid JSON in request body")

// splitArray returns the elements of an array-valued key, rejecting absent
// and non-array values. Elements are decoded one by one later.
func splitArray(raw json.RawMessage, key string) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, invalidBatch("Expected an array of %s in the request body", key)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return elems, nil
}

// decodeRecord unmarshals a single array element into dest. Anything other
// than an object decodes as an empty record, so the required-field checks
// report it.
func decodeRecord(elem json.RawMessage, dest interface{}) error {
	trimmed := bytes.TrimSpace(elem)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	if err := json.Unmarshal(trimmed, dest); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &RecordValidationError{
				Field:   typeErr.Field,
				Message: fmt.Sprintf("invalid value for field `%s`: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value),
			}
		}
		return &RecordValidationError{Message: fmt.Sprintf("invalid record: %v", err)}
	}
	return nil
}

// DecodeQuestionBatch parses a JSON document of the form
// {"courseId"?, "year"?, "examType"?, "questions": [...]}.
func DecodeQuestionBatch(body []byte) (*QuestionBatch, error) {
	var envelope struct {
		QuestionDefaults
		Questions json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	elems, err := splitArray(envelope.Questions, "questions")
	if err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return nil, invalidBatch("Questions array is empty")
	}

	batch := &QuestionBatch{QuestionDefaults: envelope.QuestionDefaults, Questions: make([]QuestionRecord, len(elems))}
	for i, elem := range elems {
		rec := &batch.Questions[i]
		rec.decodeErr = decodeRecord(elem, rec)
	}
	return batch, nil
}

// DecodeCourseBatch parses {"departmentId"?, "courses": [...]}.
func DecodeCourseBatch(body []byte) (*CourseBatch, error) {
	var envelope struct {
		DepartmentID string          `json:"departmentId"`
		Courses      json.RawMessage `json:"courses"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	elems, err := splitArray(envelope.Courses, "courses")
	if err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return nil, invalidBatch("Courses array is empty")
	}

	batch := &CourseBatch{DepartmentID: envelope.DepartmentID, Courses: make([]CourseRecord, len(elems))}
	for i, elem := range elems {
		rec := &batch.Courses[i]
		rec.decodeErr = decodeRecord(elem, rec)
	}
	return batch, nil
}

// ParseCourseCSV reads a header row (code and name required; semester, credits,
// slug and departmentId optional) followed by one course per row. Blank rows are skipped.
func ParseCourseCSV(r io.Reader, departmentID string) (*CourseBatch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, invalidBatch("CSV document is empty")
	}
	if err != nil {
		return nil, invalidBatch("Invalid CSV: %v", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		columns[name] = i
	}
	if _, ok := columns["code"]; !ok {
		return nil, invalidBatch(`CSV must have "code" and "name" columns`)
	}
	if _, ok := columns["name"]; !ok {
		return nil, invalidBatch(`CSV must have "code" and "name" columns`)
	}

	cell := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	batch := &CourseBatch{DepartmentID: departmentID, Courses: []CourseRecord{}}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, invalidBatch("Invalid CSV: %v", err)
		}
		if isBlankRow(row) {
			continue
		}

		batch.Courses = append(batch.Courses, CourseRecord{
			Code:         cell(row, "code"),
			Name:         cell(row, "name"),
			Slug:         cell(row, "slug"),
			DepartmentID: cell(row, "departmentid"),
			Credits:      NumericFromString(cell(row, "credits")),
			Semester:     NumericFromString(cell(row, "semester")),
		})
	}

	if len(batch.Courses) == 0 {
		return nil, invalidBatch("Courses array is empty")
	}
	return batch, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
