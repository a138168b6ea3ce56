package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sahilchouksey/pyq-archive/model"
	"github.com/sahilchouksey/pyq-archive/utils/cache"
	"github.com/sahilchouksey/pyq-archive/utils/metrics"
	"gorm.io/gorm"
)

const (
	// SearchLimit caps every search result set
	SearchLimit = 50

	filtersCacheKey = "search:filters"
	filtersCacheTTL = 10 * time.Minute
)

// QuestionSearch holds question search parameters; empty fields are ignored.
// University, Department and Course are IDs and only the most specific one applies.
type QuestionSearch struct {
	Query        string
	UniversityID string
	DepartmentID string
	CourseID     string
	Year         *int
	ExamType     string
}

// IsEmpty reports whether the search would match the whole table
func (q QuestionSearch) IsEmpty() bool {
	return strings.TrimSpace(q.Query) == "" &&
		q.UniversityID == "" && q.DepartmentID == "" && q.CourseID == "" &&
		q.Year == nil && q.ExamType == ""
}

// CourseSearch holds course search parameters
type CourseSearch struct {
	Query        string
	UniversityID string
	DepartmentID string
	Semester     *int
}

// ExamSummary is one (year, examType) pair with its question count
type ExamSummary struct {
	Year     int    `json:"year"`
	ExamType string `json:"examType"`
	Count    int64  `json:"count"`
}

// CourseResult is a course search hit
type CourseResult struct {
	model.Course
	QuestionCount int64         `json:"questionCount"`
	Exams         []ExamSummary `json:"exams"`
}

// Filters lists every value the question search UI can filter by
type Filters struct {
	Universities []model.University `json:"universities"`
	Departments  []model.Department `json:"departments"`
	Courses      []model.Course     `json:"courses"`
	Years        []int              `json:"years"`
	ExamTypes    []string           `json:"examTypes"`
}

// UniversityOption is a university reduced to what a select box needs
type UniversityOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DepartmentOption is a department reduced to what a select box needs
type DepartmentOption struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	UniversityID string `json:"universityId"`
}

// CourseFilters lists the values the course search UI can filter by
type CourseFilters struct {
	Universities []UniversityOption `json:"universities"`
	Departments  []DepartmentOption `json:"departments"`
	Semesters    []int              `json:"semesters"`
}

// SearchService answers read-only search queries
type SearchService struct {
	db    *gorm.DB
	cache cache.JSONCache
}

// NewSearchService creates a search service. c may be nil, in which case filters are never cached.
func NewSearchService(db *gorm.DB, c cache.JSONCache) *SearchService {
	return &SearchService{db: db, cache: c}
}

// likePattern builds a case-insensitive substring pattern using '!' as the escape character
func likePattern(q string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(q))) + "%"
}

// SearchQuestions matches question or answer content. A search with no
// criteria returns no results without touching storage.
func (s *SearchService) SearchQuestions(ctx context.Context, params QuestionSearch) ([]model.Question, error) {
	results := []model.Question{}
	if params.IsEmpty() {
		return results, nil
	}

	db := s.db.WithContext(ctx)
	query := db.Model(&model.Question{}).
		Preload("Answer").
		Preload("Course.Department.University")

	if text := strings.TrimSpace(params.Query); text != "" {
		pattern := likePattern(text)
		answerMatches := db.Model(&model.Answer{}).
			Select("question_id").
			Where("LOWER(content) LIKE ? ESCAPE '!'", pattern)
		query = query.Where("(LOWER(questions.content) LIKE ? ESCAPE '!' OR questions.id IN (?))", pattern, answerMatches)
	}

	switch {
	case params.CourseID != "":
		query = query.Where("questions.course_id = ?", params.CourseID)
	case params.DepartmentID != "":
		query = query.Where("questions.course_id IN (?)",
			db.Model(&model.Course{}).Select("id").Where("department_id = ?", params.DepartmentID))
	case params.UniversityID != "":
		query = query.Where("questions.course_id IN (?)",
			db.Model(&model.Course{}).Select("courses.id").
				Joins("JOIN departments ON departments.id = courses.department_id").
				Where("departments.university_id = ?", params.UniversityID))
	}

	if params.Year != nil {
		query = query.Where("questions.year = ?", *params.Year)
	}
	if params.ExamType != "" {
		query = query.Where("questions.exam_type = ?", params.ExamType)
	}

	if err := query.Order("questions.year DESC").Order("questions.question_no ASC").
		Limit(SearchLimit).
		Find(&results).Error; err != nil {
		log.Printf("[SEARCH] Question search failed: %v", err)
		return nil, fmt.Errorf("failed to search questions: %w", err)
	}

	metrics.SearchResultsTotal.WithLabelValues("question").Observe(float64(len(results)))
	return results, nil
}

// SearchCourses matches course code or name. Unlike question search an
// empty query lists courses up to the limit.
func (s *SearchService) SearchCourses(ctx context.Context, params CourseSearch) ([]CourseResult, error) {
	db := s.db.WithContext(ctx)
	query := db.Model(&model.Course{}).
		Select("courses.*").
		Joins("JOIN departments ON departments.id = courses.department_id").
		Joins("JOIN universities ON universities.id = departments.university_id").
		Preload("Department.University")

	if text := strings.TrimSpace(params.Query); text != "" {
		pattern := likePattern(text)
		query = query.Where("(LOWER(courses.code) LIKE ? ESCAPE '!' OR LOWER(courses.name) LIKE ? ESCAPE '!')", pattern, pattern)
	}

	if params.DepartmentID != "" {
		query = query.Where("courses.department_id = ?", params.DepartmentID)
	} else if params.UniversityID != "" {
		query = query.Where("departments.university_id = ?", params.UniversityID)
	}
	if params.Semester != nil {
		query = query.Where("courses.semester = ?", *params.Semester)
	}

	var courses []model.Course
	if err := query.
		Order("universities.name ASC").
		Order("departments.name ASC").
		Order("courses.semester ASC").
		Order("courses.code ASC").
		Limit(SearchLimit).
		Find(&courses).Error; err != nil {
		log.Printf("[SEARCH] Course search failed: %v", err)
		return nil, fmt.Errorf("failed to search courses: %w", err)
	}

	results := make([]CourseResult, len(courses))
	if len(courses) == 0 {
		return results, nil
	}

	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	exams, err := s.examSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i, c := range courses {
		results[i] = CourseResult{Course: c, Exams: []ExamSummary{}}
		for _, e := range exams[c.ID] {
			results[i].QuestionCount += e.Count
			results[i].Exams = append(results[i].Exams, e)
		}
	}

	metrics.SearchResultsTotal.WithLabelValues("course").Observe(float64(len(results)))
	return results, nil
}

// examSummaries groups question counts by course, newest year first
func (s *SearchService) examSummaries(ctx context.Context, courseIDs []string) (map[string][]ExamSummary, error) {
	var rows []struct {
		CourseID string
		Year     int
		ExamType string
		Count    int64
	}
	if err := s.db.WithContext(ctx).Model(&model.Question{}).
		Select("course_id, year, exam_type, COUNT(*) AS count").
		Where("course_id IN ?", courseIDs).
		Group("course_id, year, exam_type").
		Order("year DESC").Order("exam_type ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}

	out := make(map[string][]ExamSummary, len(courseIDs))
	for _, r := range rows {
		out[r.CourseID] = append(out[r.CourseID], ExamSummary{Year: r.Year, ExamType: r.ExamType, Count: r.Count})
	}
	return out, nil
}

// Filters returns all universities, departments and courses plus the distinct
// years and exam types in use. The result is cached when a cache is configured.
func (s *SearchService) Filters(ctx context.Context) (*Filters, error) {
	if s.cache != nil {
		var cached Filters
		err := s.cache.GetJSON(ctx, filtersCacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			log.Printf("[SEARCH] Filter cache read failed: %v", err)
		}
	}

	db := s.db.WithContext(ctx)
	f := &Filters{
		Universities: []model.University{},
		Departments:  []model.Department{},
		Courses:      []model.Course{},
		Years:        []int{},
		ExamTypes:    []string{},
	}

	if err := db.Order("name ASC").Find(&f.Universities).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch universities: %w", err)
	}
	if err := db.Order("name ASC").Find(&f.Departments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch departments: %w", err)
	}
	if err := db.Order("code ASC").Find(&f.Courses).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch courses: %w", err)
	}
	if err := db.Model(&model.Question{}).Distinct().Order("year DESC").Pluck("year", &f.Years).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch years: %w", err)
	}
	if err := db.Model(&model.Question{}).Distinct().Order("exam_type ASC").Pluck("exam_type", &f.ExamTypes).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch exam types: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, filtersCacheKey, f, filtersCacheTTL); err != nil {
			log.Printf("[SEARCH] Filter cache write failed: %v", err)
		}
	}
	return f, nil
}

// InvalidateFilters drops the cached filter lists after a catalog write
func (s *SearchService) InvalidateFilters(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, filtersCacheKey); err != nil {
		log.Printf("[SEARCH] Filter cache invalidation failed: %v", err)
	}
}

// CourseFilters returns the university and department options plus semesters 1 through 8
func (s *SearchService) CourseFilters(ctx context.Context) (*CourseFilters, error) {
	db := s.db.WithContext(ctx)
	f := &CourseFilters{
		Universities: []UniversityOption{},
		Departments:  []DepartmentOption{},
		Semesters:    []int{1, 2, 3, 4, 5, 6, 7, 8},
	}

	if err := db.Model(&model.University{}).Select("id, name").Order("name ASC").Scan(&f.Universities).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch universities: %w", err)
	}
	if err := db.Model(&model.Department{}).Select("id, name, university_id").Order("name ASC").Scan(&f.Departments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch departments: %w", err)
	}
	return f, nil
}
