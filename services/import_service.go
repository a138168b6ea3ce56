package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/sahilchouksey/pyq-archive/model"
	"github.com/sahilchouksey/pyq-archive/utils/metrics"
	"github.com/sahilchouksey/pyq-archive/utils/slug"
	"gorm.io/gorm"
)

const (
	// ErrCourseExists is reported for a course whose code is already taken in its department
	ErrCourseExists = "Course already exists"

	unknownCourseCode = "UNKNOWN"
)

// RecordResult is the outcome of importing one record: either a persisted value or the reason it failed
type RecordResult[T any] struct {
	Value T
	Err   error
}

func ok[T any](v T) RecordResult[T] {
	return RecordResult[T]{Value: v}
}

func fail[T any](err error) RecordResult[T] {
	return RecordResult[T]{Err: err}
}

// foldRecords runs step over every record in input order and splits the
// outcomes into persisted values and described failures. Every input
// position lands in exactly one of the two.
func foldRecords[R, T, E any](records []R, step func(int, R) RecordResult[T], describe func(int, R, error) E) ([]T, []E) {
	results := make([]T, 0, len(records))
	failures := make([]E, 0)
	for i, rec := range records {
		res := step(i, rec)
		if res.Err != nil {
			failures = append(failures, describe(i, rec, res.Err))
			continue
		}
		results = append(results, res.Value)
	}
	return results, failures
}

// CourseImportError describes one rejected course
type CourseImportError struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// CourseImportResult is the accounting for a bulk course import
type CourseImportResult struct {
	Created int                 `json:"created"`
	Failed  int                 `json:"failed"`
	Errors  []CourseImportError `json:"errors"`
	Results []model.Course      `json:"results"`
}

// QuestionImportError describes one rejected question; Index is 1-based
type QuestionImportError struct {
	Index      int    `json:"index"`
	QuestionNo int    `json:"questionNo"`
	Error      string `json:"error"`
}

// QuestionImportResult is the accounting for a bulk question import
type QuestionImportResult struct {
	Success bool                  `json:"success"`
	Created int                   `json:"created"`
	Failed  int                   `json:"failed"`
	Results []model.Question      `json:"results"`
	Errors  []QuestionImportError `json:"errors"`
}

// ImportService persists batches of courses and questions, one record at a time
type ImportService struct {
	db         *gorm.DB
	maxRecords int
}

// NewImportService creates an import service; maxRecords <= 0 disables the batch cap
func NewImportService(db *gorm.DB, maxRecords int) *ImportService {
	return &ImportService{db: db, maxRecords: maxRecords}
}

func (s *ImportService) checkBatchSize(n int, plural string) error {
	if n == 0 {
		return invalidBatch("No %s to import", plural)
	}
	if s.maxRecords > 0 && n > s.maxRecords {
		return invalidBatch("Too many %s in one request: %d (limit %d)", plural, n, s.maxRecords)
	}
	return nil
}

// ImportCourses inserts each course independently. A failing record never
// aborts the batch; only an empty or oversized batch is rejected as a whole.
func (s *ImportService) ImportCourses(ctx context.Context, batch *CourseBatch) (*CourseImportResult, error) {
	if err := s.checkBatchSize(len(batch.Courses), "courses"); err != nil {
		return nil, err
	}
	metrics.ImportBatchSize.WithLabelValues("course").Observe(float64(len(batch.Courses)))

	step := func(_ int, rec CourseRecord) RecordResult[model.Course] {
		return s.importCourse(ctx, rec, batch.DepartmentID)
	}
	describe := func(_ int, rec CourseRecord, err error) CourseImportError {
		code := strings.TrimSpace(rec.Code)
		if code == "" {
			code = unknownCourseCode
		}
		return CourseImportError{Code: code, Error: err.Error()}
	}

	created, failures := foldRecords(batch.Courses, step, describe)
	s.record("course", len(created), len(failures))

	return &CourseImportResult{
		Created: len(created),
		Failed:  len(failures),
		Errors:  failures,
		Results: created,
	}, nil
}

// CourseFromRecord applies the batch default department, checks required
// fields and parses numerics. It does not touch storage.
func CourseFromRecord(rec CourseRecord, defaultDepartmentID string) (*model.Course, error) {
	if rec.decodeErr != nil {
		return nil, rec.decodeErr
	}
	code := strings.TrimSpace(rec.Code)
	name := strings.TrimSpace(rec.Name)
	departmentID := strings.TrimSpace(rec.DepartmentID)
	if departmentID == "" {
		departmentID = strings.TrimSpace(defaultDepartmentID)
	}

	switch {
	case code == "":
		return nil, missingField("code")
	case name == "":
		return nil, missingField("name")
	case departmentID == "":
		return nil, missingField("departmentId")
	}

	course := &model.Course{
		Code:         code,
		Name:         name,
		DepartmentID: departmentID,
		Slug:         slug.OrDerive(rec.Slug, code),
	}

	if rec.Credits.IsSet() {
		credits, err := rec.Credits.Float()
		if err != nil {
			return nil, invalidField("credits", rec.Credits.Raw())
		}
		course.Credits = &credits
	}
	if rec.Semester.IsSet() {
		semester, err := rec.Semester.Semester()
		if err != nil {
			return nil, invalidField("semester", rec.Semester.Raw())
		}
		course.Semester = &semester
	}
	return course, nil
}

func (s *ImportService) importCourse(ctx context.Context, rec CourseRecord, defaultDepartmentID string) RecordResult[model.Course] {
	course, err := CourseFromRecord(rec, defaultDepartmentID)
	if err != nil {
		return fail[model.Course](err)
	}

	db := s.db.WithContext(ctx)

	var existing int64
	if err := db.Model(&model.Course{}).
		Where("code = ? AND department_id = ?", course.Code, course.DepartmentID).
		Count(&existing).Error; err != nil {
		log.Printf("[IMPORT] Failed to check course %s: %v", course.Code, err)
		return fail[model.Course](err)
	}
	if existing > 0 {
		return fail[model.Course](errors.New(ErrCourseExists))
	}

	if err := db.Create(course).Error; err != nil {
		return fail[model.Course](describeCreateError(err, ErrCourseExists, "Department does not exist"))
	}
	return ok(*course)
}

// ImportQuestions inserts each question (with its optional answer) as one unit.
// Batch-level courseId, year and examType fill in records that omit them.
func (s *ImportService) ImportQuestions(ctx context.Context, batch *QuestionBatch) (*QuestionImportResult, error) {
	if err := s.checkBatchSize(len(batch.Questions), "questions"); err != nil {
		return nil, err
	}
	metrics.ImportBatchSize.WithLabelValues("question").Observe(float64(len(batch.Questions)))

	step := func(i int, rec QuestionRecord) RecordResult[model.Question] {
		return s.importQuestion(ctx, i, rec, batch.QuestionDefaults)
	}
	describe := func(i int, rec QuestionRecord, err error) QuestionImportError {
		questionNo := i + 1
		if rec.QuestionNo.IsSet() {
			if n, perr := rec.QuestionNo.Int(); perr == nil {
				questionNo = n
			}
		}
		return QuestionImportError{Index: i + 1, QuestionNo: questionNo, Error: err.Error()}
	}

	created, failures := foldRecords(batch.Questions, step, describe)
	s.record("question", len(created), len(failures))

	return &QuestionImportResult{
		Success: true,
		Created: len(created),
		Failed:  len(failures),
		Results: created,
		Errors:  failures,
	}, nil
}

// QuestionFromRecord applies defaults, checks required fields and parses
// numerics. When fallbackNo is non-nil it is used for a missing questionNo.
func QuestionFromRecord(rec QuestionRecord, defaults QuestionDefaults, fallbackNo *int) (*model.Question, error) {
	if rec.decodeErr != nil {
		return nil, rec.decodeErr
	}
	courseID := strings.TrimSpace(rec.CourseID)
	if courseID == "" {
		courseID = strings.TrimSpace(defaults.CourseID)
	}
	year := rec.Year
	if !year.IsSet() {
		year = defaults.Year
	}
	content := strings.TrimSpace(rec.Content)

	switch {
	case courseID == "":
		return nil, missingField("courseId")
	case !year.IsSet():
		return nil, missingField("year")
	case content == "":
		return nil, missingField("content")
	}

	parsedYear, err := year.Int()
	if err != nil {
		return nil, invalidField("year", year.Raw())
	}

	examType := strings.TrimSpace(rec.ExamType)
	if examType == "" {
		examType = strings.TrimSpace(defaults.ExamType)
	}
	if examType == "" {
		examType = model.DefaultExamType
	}

	question := &model.Question{
		CourseID:   courseID,
		Year:       parsedYear,
		ExamType:   examType,
		Content:    content,
		QuestionNo: fallbackNo,
	}

	if rec.QuestionNo.IsSet() {
		n, err := rec.QuestionNo.Int()
		if err != nil {
			return nil, invalidField("questionNo", rec.QuestionNo.Raw())
		}
		question.QuestionNo = &n
	}
	if rec.Marks.IsSet() {
		marks, err := rec.Marks.Int()
		if err != nil {
			return nil, invalidField("marks", rec.Marks.Raw())
		}
		question.Marks = &marks
	}

	if rec.Answer != nil && strings.TrimSpace(rec.Answer.Content) != "" {
		question.Answer = &model.Answer{
			Content:     strings.TrimSpace(rec.Answer.Content),
			Source:      optionalString(rec.Answer.Source),
			Contributor: optionalString(rec.Answer.Contributor),
		}
	}
	return question, nil
}

func (s *ImportService) importQuestion(ctx context.Context, i int, rec QuestionRecord, defaults QuestionDefaults) RecordResult[model.Question] {
	fallbackNo := i + 1
	question, err := QuestionFromRecord(rec, defaults, &fallbackNo)
	if err != nil {
		return fail[model.Question](err)
	}

	// question and answer are written in one transaction
	if err := s.db.WithContext(ctx).Create(question).Error; err != nil {
		return fail[model.Question](describeCreateError(err, "Question already exists", "Course does not exist"))
	}
	return ok(*question)
}

func (s *ImportService) record(entity string, created, failed int) {
	metrics.ImportRecordsTotal.WithLabelValues(entity, "created").Add(float64(created))
	metrics.ImportRecordsTotal.WithLabelValues(entity, "failed").Add(float64(failed))
	log.Printf("[IMPORT] %s batch: %d created, %d failed", entity, created, failed)
}

// describeCreateError maps translated constraint errors to readable reasons
func describeCreateError(err error, duplicate, missingParent string) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.New(duplicate)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return errors.New(missingParent)
	default:
		log.Printf("[IMPORT] Insert failed: %v", err)
		return err
	}
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
