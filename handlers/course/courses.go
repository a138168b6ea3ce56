package course

import (
	"bytes"
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/pyq-archive/database"
	"github.com/sahilchouksey/pyq-archive/handlers"
	"github.com/sahilchouksey/pyq-archive/model"
	"github.com/sahilchouksey/pyq-archive/services"
	"github.com/sahilchouksey/pyq-archive/utils/response"
	"github.com/sahilchouksey/pyq-archive/utils/validation"
	"gorm.io/gorm"
)

// CourseHandler handles course-related requests
type CourseHandler struct {
	db        *gorm.DB
	validator *validation.Validator
	importer  *services.ImportService
	search    *services.SearchService
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(db *gorm.DB, importer *services.ImportService, search *services.SearchService) *CourseHandler {
	return &CourseHandler{
		db:        db,
		validator: validation.NewValidator(),
		importer:  importer,
		search:    search,
	}
}

// CreateCourseRequest represents the request body for creating a course.
// credits and semester accept numbers or numeric strings.
type CreateCourseRequest struct {
	Code         string                `json:"code" validate:"required,max=50"`
	Name         string                `json:"name" validate:"required,max=255"`
	Slug         string                `json:"slug" validate:"omitempty,max=100"`
	DepartmentID string                `json:"departmentId" validate:"required"`
	Credits      services.NumericField `json:"credits"`
	Semester     services.NumericField `json:"semester"`
}

// UpdateCourseRequest represents the request body for updating a course
type UpdateCourseRequest struct {
	Code     string                `json:"code" validate:"omitempty,max=50"`
	Name     string                `json:"name" validate:"omitempty,max=255"`
	Slug     string                `json:"slug" validate:"omitempty,max=100"`
	Credits  services.NumericField `json:"credits"`
	Semester services.NumericField `json:"semester"`
}

// CourseListItem is a course with the number of questions archived for it
type CourseListItem struct {
	model.Course
	QuestionCount int64 `json:"questionCount"`
}

const duplicateCodeMessage = "Course with this code already exists in the department"

// ListCourses handles GET /api/admin/courses?departmentId=
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())

	query := db.Preload("Department.University")
	if departmentID := c.Query("departmentId"); departmentID != "" {
		query = query.Where("department_id = ?", departmentID)
	}

	var courses []model.Course
	if err := query.Order("code ASC").Find(&courses).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch courses")
	}

	ids := make([]string, len(courses))
	for i, course := range courses {
		ids[i] = course.ID
	}
	counts, err := services.CountQuestionsByCourse(db, ids)
	if err != nil {
		return response.InternalServerError(c, "Failed to count questions")
	}

	items := make([]CourseListItem, len(courses))
	for i, course := range courses {
		items[i] = CourseListItem{Course: course, QuestionCount: counts[course.ID]}
	}
	return response.Success(c, items)
}

// GetCourse handles GET /api/admin/courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	var course model.Course
	if err := h.db.WithContext(c.UserContext()).
		Preload("Department.University").
		First(&course, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}
	return response.Success(c, course)
}

// CreateCourse handles POST /api/admin/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Code = validation.SanitizeString(req.Code)
	req.Name = validation.SanitizeString(req.Name)
	req.Slug = validation.SanitizeString(req.Slug)
	req.DepartmentID = validation.SanitizeString(req.DepartmentID)

	if result := h.validator.Check(req); !result.OK() {
		return response.ValidationError(c, result)
	}

	course, err := services.CourseFromRecord(services.CourseRecord{
		Code:         req.Code,
		Name:         req.Name,
		Slug:         req.Slug,
		DepartmentID: req.DepartmentID,
		Credits:      req.Credits,
		Semester:     req.Semester,
	}, "")
	if err != nil {
		return handlers.RespondRecordError(c, err, "Failed to create course")
	}

	db := h.db.WithContext(c.UserContext())

	var department model.Department
	if err := db.First(&department, "id = ?", course.DepartmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.BadRequest(c, "Department does not exist")
		}
		return response.InternalServerError(c, "Failed to fetch department")
	}

	var existing int64
	if err := db.Model(&model.Course{}).
		Where("code = ? AND department_id = ?", course.Code, course.DepartmentID).
		Count(&existing).Error; err != nil {
		return response.InternalServerError(c, "Failed to check course")
	}
	if existing > 0 {
		return response.Duplicate(c, duplicateCodeMessage)
	}

	if err := db.Create(course).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Duplicate(c, duplicateCodeMessage)
		}
		log.Printf("[ADMIN] Failed to create course %q: %v", course.Code, err)
		return response.InternalServerError(c, "Failed to create course")
	}

	h.search.InvalidateFilters(c.UserContext())
	return response.Created(c, course)
}

// UpdateCourse handles PUT /api/admin/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	id := c.Params("id")

	var req UpdateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Code = validation.SanitizeString(req.Code)
	req.Name = validation.SanitizeString(req.Name)
	req.Slug = validation.SanitizeString(req.Slug)

	if result := h.validator.Check(req); !result.OK() {
		return response.ValidationError(c, result)
	}

	db := h.db.WithContext(c.UserContext())

	var course model.Course
	if err := db.First(&course, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	if req.Code != "" && req.Code != course.Code {
		var taken int64
		if err := db.Model(&model.Course{}).
			Where("code = ? AND department_id = ? AND id <> ?", req.Code, course.DepartmentID, id).
			Count(&taken).Error; err != nil {
			return response.InternalServerError(c, "Failed to check course")
		}
		if taken > 0 {
			return response.Duplicate(c, duplicateCodeMessage)
		}
		course.Code = req.Code
	}
	if req.Name != "" {
		course.Name = req.Name
	}
	if req.Slug != "" {
		course.Slug = req.Slug
	}
	if req.Credits.IsSet() {
		credits, err := req.Credits.Float()
		if err != nil {
			return response.BadRequest(c, "credits must be a number")
		}
		course.Credits = &credits
	}
	if req.Semester.IsSet() {
		semester, err := req.Semester.Semester()
		if err != nil {
			return response.BadRequest(c, "semester must be a number")
		}
		course.Semester = &semester
	}

	if err := db.Save(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Duplicate(c, "Course with this code or slug already exists in the department")
		}
		return response.InternalServerError(c, "Failed to update course")
	}

	h.search.InvalidateFilters(c.UserContext())
	return response.SuccessWithMessage(c, "Course updated successfully", course)
}

// DeleteCourse handles DELETE /api/admin/courses/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	id := c.Params("id")
	db := h.db.WithContext(c.UserContext())

	var course model.Course
	if err := db.First(&course, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteCourse(tx, id)
	}); err != nil {
		log.Printf("[ADMIN] Failed to delete course %s: %v", id, err)
		return response.InternalServerError(c, "Failed to delete course")
	}

	h.search.InvalidateFilters(c.UserContext())
	return response.SuccessWithMessage(c, "Course and all its questions deleted successfully", nil)
}

// BulkImportCourses handles POST /api/admin/courses/bulk
//
// Accepts a JSON body {"departmentId"?, "courses": [...]}, a text/csv body
// with ?departmentId=, or a multipart form with a CSV "file" and "departmentId".
func (h *CourseHandler) BulkImportCourses(c *fiber.Ctx) error {
	batch, err := decodeCourseBatch(c)
	if err != nil {
		return handlers.RespondImportError(c, err)
	}

	result, err := h.importer.ImportCourses(c.UserContext(), batch)
	if err != nil {
		return handlers.RespondImportError(c, err)
	}

	if result.Created > 0 {
		h.search.InvalidateFilters(c.UserContext())
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func decodeCourseBatch(c *fiber.Ctx) (*services.CourseBatch, error) {
	contentType := strings.ToLower(c.Get(fiber.HeaderContentType))

	switch {
	case strings.HasPrefix(contentType, fiber.MIMEMultipartForm):
		file, err := c.FormFile("file")
		if err != nil {
			return nil, &services.InvalidBatchError{Reason: "Missing CSV file in form field \"file\""}
		}
		f, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return services.ParseCourseCSV(f, c.FormValue("departmentId"))

	case strings.HasPrefix(contentType, "text/csv"):
		return services.ParseCourseCSV(bytes.NewReader(c.Body()), c.Query("departmentId"))

	default:
		return services.DecodeCourseBatch(c.Body())
	}
}
