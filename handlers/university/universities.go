package university

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

// UniversityHandler handles university-related requests
type UniversityHandler struct {
	db        *gorm.DB
	validator *validation.Validator
	search    *services.SearchService
}

// NewUniversityHandler creates a new university handler
func NewUniversityHandler(db *gorm.DB, search *services.SearchService) *UniversityHandler {
	return &UniversityHandler{
		db:        db,
		validator: validation.NewValidator(),
		search:    search,
	}
}

// CreateUniversityRequest represents the request body for creating a university
type CreateUniversityRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	Slug string `json:"slug" validate:"omitempty,max=100"`
}

// UpdateUniversityRequest represents the request body for updating a university
type UpdateUniversityRequest struct {
	Name string `json:"name" validate:"omitempty,max=255"`
	Slug string `json:"slug" validate:"omitempty,max=100"`
}

// UniversityListItem is a university with the number of departments it has
type UniversityListItem struct {
	model.University
	DepartmentCount int64 `json:"departmentCount"`
}

// ListUniversities handles GET /api/admin/universities
func (h *UniversityHandler) ListUniversities(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())

	var universities []model.University
	if err := db.Order("name ASC").Find(&universities).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch universities")
	}

	ids := make([]string, len(universities))
	for i, u := range universities {
		ids[i] = u.ID
	}
	counts, err := database.CountBy(db, &model.Department{}, "university_id", ids)
	if err != nil {
		return response.InternalServerError(c, "Failed to count departments")
	}

	items := make([]UniversityListItem, len(universities))
	for i, u := range universities {
		items[i] = UniversityListItem{University: u, DepartmentCount: counts[u.ID]}
	}
	return response.Success(c, items)
}

// GetUniversity handles GET /api/admin/universities/:id
func (h *UniversityHandler) GetUniversity(c *fiber.Ctx) error {
	id := c.Params("id")

	var university model.University
	if err := h.db.WithContext(c.UserContext()).
		Preload("Departments", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		First(&university, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "University not found")
		}
		return response.InternalServerError(c, "Failed to fetch university")
	}

	return response.Success(c, university)
}

// CreateUniversity handles POST /api/admin/universities
func (h *UniversityHandler) CreateUniversity(c *fiber.Ctx) error {
	// Parse request body
	var req CreateUniversityRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	// Sanitize inputs
	req.Name = validation.SanitizeString(req.Name)
	req.Slug = validation.SanitizeString(req.Slug)

	// Validate request
	if result := h.validator.Check(req); !result.OK() {
		return response.ValidationError(c, result)
	}

	db := h.db.WithContext(c.UserContext())
	university := model.University{
		Name: req.Name,
		Slug: slug.OrDerive(req.Slug, req.Name),
	}

	// Check if university with same slug already exists
	var existing int64
	if err := db.Model(&model.University{}).Where("slug = ?", university.Slug).Count(&existing).Error; err != nil {
		return response.InternalServerError(c, "Failed to check university")
	}
	if existing > 0 {
		return response.Duplicate(c, "University with this slug already exists")
	}

	if err := db.Create(&university).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Duplicate(c, "University with this slug already exists")
		}
		log.Printf("[ADMIN] Failed to create university %q: %v", university.Slug, err)
		return response.InternalServerError(c, "Failed to create university")
	}

	h.search.InvalidateFilters(c.UserContext())
	return response.Created(c, university)
}

// UpdateUniversity handles PUT /api/admin/universities/:id
func (h *UniversityHandler) UpdateUniversity(c *fiber.Ctx) error {
	id := c.Params("id")

	// Parse request body
	var req UpdateUniversityRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Name = validation.SanitizeString(req.Name)
	req.Slug = validation.SanitizeString(req.Slug)

	// Validate request
	if result := h.validator.Check(req); !result.OK() {
		return response.ValidationError(c, result)
	}

	db := h.db.WithContext(c.UserContext())

	// Check if university exists
	var university model.University
	if err := db.First(&university, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "University not found")
		}
		return response.InternalServerError(c, "Failed to fetch university")
	}

	// Update fields if provided
	if req.Name != "" {
		university.Name = req.Name
	}
	if req.Slug != "" && req.Slug != university.Slug {
		// Check if slug is already used by another university
		var taken int64
		if err := db.Model(&model.University{}).Where("slug = ? AND id <> ?", req.Slug, id).Count(&taken).Error; err != nil {
			return response.InternalServerError(c, "Failed to check university")
		}
		if taken > 0 {
			return response.Duplicate(c, "University with this slug already exists")
		}
		university.Slug = req.Slug
	}

	// Save changes
	if err := db.Save(&university).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Duplicate(c, "University with this slug already exists")
		}
		return response.InternalServerError(c, "Failed to update university")
	}

	h.search.InvalidateFilters(c.UserContext())
	return response.SuccessWithMessage(c, "University updated successfully", university)
}

// DeleteUniversity handles DELETE /api/admin/universities/:id
// Cascade deletes all departments, courses, questions and answers
func (h *UniversityHandler) DeleteUniversity(c *fiber.Ctx) error {
	id := c.Params("id")
	db := h.db.WithContext(c.UserContext())

	// Check if university exists
	var university model.University
	if err := db.First(&university, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "University not found")
		}
		return response.InternalServerError(c, "Failed to fetch university")
	}

	// Use a transaction for cascade delete
	if err := db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteUniversity(tx, id)
	}); err != nil {
		log.Printf("[ADMIN] Failed to delete university %s: %v", id, err)
		return response.InternalServerError(c, "Failed to delete university")
	}

	h.search.InvalidateFilters(c.UserContext())
	return response.SuccessWithMessage(c, "University and all related data deleted successfully", nil)
}
