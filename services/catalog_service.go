package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/sahilchouksey/pyq-archive/database"
	"github.com/sahilchouksey/pyq-archive/model"
	"gorm.io/gorm"
)

// YearCount is the number of questions a course has for one year
type YearCount struct {
	Year  int   `json:"year"`
	Count int64 `json:"count"`
}

// CourseStats is a course with its question totals per year
type CourseStats struct {
	model.Course
	QuestionCount int64       `json:"questionCount"`
	Years         []YearCount `json:"years"`
}

// DepartmentView is a department with its courses, split by whether they have questions yet
type DepartmentView struct {
	Department       model.Department
	WithQuestions    []CourseStats
	WithoutQuestions []CourseStats
}

// YearGroup holds the exam types available for one year of a course
type YearGroup struct {
	Year  int
	Exams []ExamSummary
}

// Total sums the question counts of every exam in the year
func (g YearGroup) Total() int64 {
	var n int64
	for _, e := range g.Exams {
		n += e.Count
	}
	return n
}

// ExamGroup is the questions of one exam type within a year
type ExamGroup struct {
	ExamType  string
	Questions []model.Question
}

// YearView is a course's questions for one year
type YearView struct {
	Course     model.Course
	Year       int
	ExamType   string
	Groups     []ExamGroup
	TotalMarks int
	Count      int
}

// EntityCounts are the row counts shown on the dashboard
type EntityCounts struct {
	Universities int64 `json:"universities"`
	Departments  int64 `json:"departments"`
	Courses      int64 `json:"courses"`
	Questions    int64 `json:"questions"`
}

// CourseCount is a course with its question count
type CourseCount struct {
	model.Course
	QuestionCount int64 `json:"questionCount"`
}

// Dashboard summarises the archive for administrators
type Dashboard struct {
	Counts          EntityCounts     `json:"counts"`
	RecentQuestions []model.Question `json:"recentQuestions"`
	TopCourses      []CourseCount    `json:"topCourses"`
}

const (
	recentQuestionLimit = 5
	topCourseLimit      = 10
)

// CatalogService resolves the slug hierarchy used by the browsing pages
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService creates a catalog service
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// ListUniversities returns every university ordered by name
func (s *CatalogService) ListUniversities(ctx context.Context) ([]model.University, error) {
	universities := []model.University{}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&universities).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch universities: %w", err)
	}
	return universities, nil
}

// UniversityBySlug loads a university and its departments ordered by name.
// A miss returns gorm.ErrRecordNotFound.
func (s *CatalogService) UniversityBySlug(ctx context.Context, slug string) (*model.University, error) {
	var university model.University
	err := s.db.WithContext(ctx).
		Preload("Departments", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Where("slug = ?", slug).
		First(&university).Error
	if err != nil {
		return nil, err
	}
	return &university, nil
}

// DepartmentBySlugs loads a department of the given university together with
// its courses ordered by code and their per-year question counts.
func (s *CatalogService) DepartmentBySlugs(ctx context.Context, universitySlug, departmentSlug string) (*DepartmentView, error) {
	db := s.db.WithContext(ctx)

	var department model.Department
	err := db.Preload("University").
		Preload("Courses", func(db *gorm.DB) *gorm.DB { return db.Order("code ASC") }).
		Joins("JOIN universities ON universities.id = departments.university_id").
		Where("departments.slug = ? AND universities.slug = ?", departmentSlug, universitySlug).
		First(&department).Error
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(department.Courses))
	for i, c := range department.Courses {
		ids[i] = c.ID
	}

	years := map[string][]YearCount{}
	if len(ids) > 0 {
		var rows []struct {
			CourseID string
			Year     int
			Count    int64
		}
		if err := db.Model(&model.Question{}).
			Select("course_id, year, COUNT(*) AS count").
			Where("course_id IN ?", ids).
			Group("course_id, year").
			Order("year DESC").
			Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to count questions: %w", err)
		}
		for _, r := range rows {
			years[r.CourseID] = append(years[r.CourseID], YearCount{Year: r.Year, Count: r.Count})
		}
	}

	view := &DepartmentView{
		WithQuestions:    []CourseStats{},
		WithoutQuestions: []CourseStats{},
	}
	for _, c := range department.Courses {
		stats := CourseStats{Course: c, Years: years[c.ID]}
		for _, y := range stats.Years {
			stats.QuestionCount += y.Count
		}
		if stats.QuestionCount > 0 {
			view.WithQuestions = append(view.WithQuestions, stats)
		} else {
			view.WithoutQuestions = append(view.WithoutQuestions, stats)
		}
	}
	department.Courses = nil
	view.Department = department
	return view, nil
}

// CourseBySlugs resolves a course through its department and university slugs
func (s *CatalogService) CourseBySlugs(ctx context.Context, universitySlug, departmentSlug, courseSlug string) (*model.Course, error) {
	var course model.Course
	err := s.db.WithContext(ctx).
		Preload("Department.University").
		Joins("JOIN departments ON departments.id = courses.department_id").
		Joins("JOIN universities ON universities.id = departments.university_id").
		Where("courses.slug = ? AND departments.slug = ? AND universities.slug = ?", courseSlug, departmentSlug, universitySlug).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// CourseYears groups a course's (year, examType) counts by year, newest first
func (s *CatalogService) CourseYears(ctx context.Context, courseID string) ([]YearGroup, int64, error) {
	var rows []struct {
		Year     int
		ExamType string
		Count    int64
	}
	if err := s.db.WithContext(ctx).Model(&model.Question{}).
		Select("year, exam_type, COUNT(*) AS count").
		Where("course_id = ?", courseID).
		Group("year, exam_type").
		Order("year DESC").Order("exam_type ASC").
		Scan(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	groups := []YearGroup{}
	var total int64
	for _, r := range rows {
		if len(groups) == 0 || groups[len(groups)-1].Year != r.Year {
			groups = append(groups, YearGroup{Year: r.Year})
		}
		last := &groups[len(groups)-1]
		last.Exams = append(last.Exams, ExamSummary{Year: r.Year, ExamType: r.ExamType, Count: r.Count})
		total += r.Count
	}
	return groups, total, nil
}

// YearQuestions loads a course's questions for one year, optionally narrowed
// to one exam type, grouped by exam type in ascending order.
func (s *CatalogService) YearQuestions(ctx context.Context, course *model.Course, year int, examType string) (*YearView, error) {
	query := s.db.WithContext(ctx).
		Preload("Answer").
		Where("course_id = ? AND year = ?", course.ID, year)
	if examType != "" {
		query = query.Where("exam_type = ?", examType)
	}

	var questions []model.Question
	if err := query.Order("exam_type ASC").Order("question_no ASC").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch questions: %w", err)
	}

	view := &YearView{Course: *course, Year: year, ExamType: examType, Count: len(questions)}
	for _, q := range questions {
		if n := len(view.Groups); n == 0 || view.Groups[n-1].ExamType != q.ExamType {
			view.Groups = append(view.Groups, ExamGroup{ExamType: q.ExamType})
		}
		last := &view.Groups[len(view.Groups)-1]
		last.Questions = append(last.Questions, q)
		if q.Marks != nil {
			view.TotalMarks += *q.Marks
		}
	}
	return view, nil
}

// Dashboard gathers entity counts, the most recent questions and the courses with most questions
func (s *CatalogService) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	d := &Dashboard{RecentQuestions: []model.Question{}, TopCourses: []CourseCount{}}

	counts := []struct {
		table interface{}
		dest  *int64
	}{
		{&model.University{}, &d.Counts.Universities},
		{&model.Department{}, &d.Counts.Departments},
		{&model.Course{}, &d.Counts.Courses},
		{&model.Question{}, &d.Counts.Questions},
	}
	for _, c := range counts {
		if err := db.Model(c.table).Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count rows: %w", err)
		}
	}

	if err := db.Preload("Course.Department.University").
		Order("created_at DESC").
		Limit(recentQuestionLimit).
		Find(&d.RecentQuestions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch recent questions: %w", err)
	}

	var courses []model.Course
	if err := db.Preload("Department.University").
		Order("(SELECT COUNT(*) FROM questions WHERE questions.course_id = courses.id) DESC, courses.code ASC").
		Limit(topCourseLimit).
		Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch top courses: %w", err)
	}

	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	questionCounts, err := CountQuestionsByCourse(db, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range courses {
		d.TopCourses = append(d.TopCourses, CourseCount{Course: c, QuestionCount: questionCounts[c.ID]})
	}
	return d, nil
}

// CountQuestionsByCourse returns question counts keyed by course ID; courses with none are absent
func CountQuestionsByCourse(db *gorm.DB, courseIDs []string) (map[string]int64, error) {
	counts, err := database.CountBy(db, &model.Question{}, "course_id", courseIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	return counts, nil
}

var knownShortForms = map[string]string{
	"University of Dhaka":      "DU",
	"University of Rajshahi":   "RU",
	"University of Chittagong": "CU",
}

// ShortForm abbreviates a university name from the initials of its capitalised words,
// so "Khulna University of Engineering & Technology" becomes "KUET".
func ShortForm(name string) string {
	if short, ok := knownShortForms[name]; ok {
		return short
	}
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		if unicode.IsUpper(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return name
	}
	return b.String()
}
