package department

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/pyq-archive/database"
	"github.com/sahilchouksey/pyq-archive/model"
	"github.com/sahilchouksey/pyq-archive/services"
	"github.com/sahilchouksey/pyq-archive/utils/response"
	"github.com/sahilchouksey/pyq-archive/utils/slug"
	"github.com/sahilchouksey/pyq-archive/utils/validation"
	"gorm.io/gorm"
)

// DepartmentHandler handles department-related requests
type DepartmentHandler struct {
	db        *gorm.DB
	validator *validation.Validator
	search    *services.SearchService
}

// NewDepartmentHandler creates a new department handler
func NewDepartmentHandler(db *gorm.DB, search *services.SearchService) *DepartmentHandler {
	return &DepartmentHandler{
		db:        db,
		validator: validation.NewValidator(),
		search:    search,
	}
}

// CreateDepartmentRequest represents the request body for creating a department
type CreateDepartmentRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	Slug         string `json:"slug" validate:"omitempty,max=100"`
	UniversityID string `json:"universityId" validate:"required"`
}

// UpdateDepartmentRequest represents the request body for updating a department
type UpdateDepartmentRequest struct {
	Name string `json:"name" validate:"omitempty,max=255"`
	Slug string `json:"slug" validate:"omitempty,max=100"`
}

// DepartmentListItem is a department with the number of courses it offers
type DepartmentListItem struct {
	model.Department
	CourseCount int64 `json:"courseCount"`
}

const duplicateSlugMessage = "Department with this slug already exists in the university"

// ListDepartments handles GET /api/admin/departments?universityId=
func (h *DepartmentHandler) ListDepartments(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())

	query := db.Preload("University")
	if universityID := c.Query("universityId"); universityID != "" {
		query = query.Where("university_id = ?", universityID)
	}

	var departments []model.Department
	if err := query.Order("name ASC").Find(&departments).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch departments")
	}

	ids := make([]string, len(departments))
	for i, d := range departments {
		ids[i] = d.ID
	}
	counts, err := database.CountBy(db, &model.Course{}, "department_id", ids)
	if err != nil {
		return response.InternalServerError(c, "Failed to count courses")
	}

	items := make([]DepartmentListItem, len(departments))
	for i, d := range departments {
		items[i] = DepartmentListItem{Department: d, CourseCount: counts[d.ID]}
	}
	return response.Success(c, items)
}

// GetDepartment handles GET /api/admin/departments/:id
func (h *DepartmentHandler) GetDepartment(c *fiber.Ctx) error {
	var department model.Department
	if err := h.db.WithContext(c.UserContext()).
		Preload("University").
		Preload("Courses", func(db *gorm.DB) *gorm.DB { return db.Order("code ASC") }).
		First(&department, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Department not found")
		}
		return response.InternalServerError(c, "Failed to fetch department")
	}
	return response.Success(c, department)
}

// CreateDepartment handles POST /api/admin/departments
func (h *DepartmentHandler) CreateDepartment(c *fiber.Ctx) error {
	var req CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Name = validation.SanitizeString(req.Name)
	req.Slug = validation.SanitizeString(req.Slug)
	req.UniversityID = validation.SanitizeString(req.UniversityID)

	if result := h.validator.Check(req); !result.OK() {
		return response.ValidationError(c, result)
	}

	db := h.db.WithContext(c.UserContext())

	// Parent must exist
	var university model.University
	if err := db.First(&university, "id = ?", req.UniversityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.BadRequest(c, "University does not exist")
		}
		return response.InternalServerError(c, "Failed to fetch university")
	}

	department := model.Department{
		Name:         req.Name,
		Slug:         slug.OrDerive(req.Slug, req.Name),
		UniversityID: req.UniversityID,
	}

	var existing int64
	if err := db.Model(&model.Department{}).
		Where("university_id = ? AND slug = ?", department.UniversityID, department.Slug).
		Count(&existing).Error; err != nil {
		return response.InternalServerError(c, "Failed to check department")
	}
	if existing > 0 {
		return response.Duplicate(c, duplicateSlugMessage)
	}

	if err := db.Create(&department).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Duplicate(c, duplicateSlugMessage)
		}
		log.Printf("[ADMIN] Failed to create department %q: %v", department.Slug, err)
		return response.InternalServerError(c, "Failed to create department")
	}

	department.University = &university
	h.search.InvalidateFilters(c.UserContext())
	return response.Created(c, department)
}

// UpdateDepartment handles PUT /api/admin/departments/:id
func (h *DepartmentHandler) UpdateDepartment(c *fiber.Ctx) error {
	id := c.Params("id")

	var req UpdateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Name = validation.SanitizeString(req.Name)
	req.Slug = validation.SanitizeString(req.Slug)

	if result := h.validator.Check(req); !result.OK() {
		return response.ValidationError(c, result)
	}

	db := h.db.WithContext(c.UserContext())

	var department model.Department
	if err := db.First(&department, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Department not found")
		}
		return response.InternalServerError(c, "Failed to fetch department")
	}

	if req.Name != "" {
		department.Name = req.Name
	}
	if req.Slug != "" && req.Slug != department.Slug {
		var taken int64
		if err := db.Model(&model.Department{}).
			Where("university_id = ? AND slug = ? AND id <> ?", department.UniversityID, req.Slug, id).
			Count(&taken).Error; err != nil {
			return response.InternalServerError(c, "Failed to check department")
		}
		if taken > 0 {
			return response.Duplicate(c, duplicateSlugMessage)
		}
		department.Slug = req.Slug
	}

	if err := db.Save(&department).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Duplicate(c, duplicateSlugMessage)
		}
		return response.InternalServerError(c, "Failed to update department")
	}

	h.search.InvalidateFilters(c.UserContext())
	return response.SuccessWithMessage(c, "Department updated successfully", department)
}

// DeleteDepartment handles DELETE /api/admin/departments/:id
func (h *DepartmentHandler) DeleteDepartment(c *fiber.Ctx) error {
	id := c.Params("id")
	db := h.db.WithContext(c.UserContext())

	var department model.Department
	if err := db.First(&department, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Department not found")
		}
		return response.InternalServerError(c, "Failed to fetch department")
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteDepartment(tx, id)
	}); err != nil {
		log.Printf("[ADMIN] Failed to delete department %s: %v", id, err)
		return response.InternalServerError(c, "Failed to delete department")
	}

	h.search.InvalidateFilters(c.UserContext())
	return response.SuccessWithMessage(c, "Department and all related data deleted successfully", nil)
}
