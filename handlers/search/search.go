package search

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/pyq-archive/services"
	"github.com/sahilchouksey/pyq-archive/utils/response"
)

// SearchHandler serves the public search endpoints
type SearchHandler struct {
	search *services.SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search *services.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// optionalInt parses an integer query parameter; absent means nil
func optionalInt(c *fiber.Ctx, key string) (*int, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// SearchQuestions handles GET /api/search?q=&university=&department=&course=&year=&examType=
func (h *SearchHandler) SearchQuestions(c *fiber.Ctx) error {
	year, err := optionalInt(c, "year")
	if err != nil {
		return response.BadRequest(c, "year must be a number")
	}

	results, err := h.search.SearchQuestions(c.UserContext(), services.QuestionSearch{
		Query:        c.Query("q"),
		UniversityID: c.Query("university"),
		DepartmentID: c.Query("department"),
		CourseID:     c.Query("course"),
		Year:         year,
		ExamType:     c.Query("examType"),
	})
	if err != nil {
		log.Printf("[SEARCH] %v", err)
		return response.ErrorWithDetails(c, fiber.StatusInternalServerError, "Search failed", "INTERNAL_ERROR", err.Error())
	}
	return c.JSON(fiber.Map{"results": results})
}

// SearchCourses handles GET /api/search/courses?q=&university=&department=&semester=
func (h *SearchHandler) SearchCourses(c *fiber.Ctx) error {
	semester, err := optionalInt(c, "semester")
	if err != nil {
		return response.BadRequest(c, "semester must be a number")
	}

	results, err := h.search.SearchCourses(c.UserContext(), services.CourseSearch{
		Query:        c.Query("q"),
		UniversityID: c.Query("university"),
		DepartmentID: c.Query("department"),
		Semester:     semester,
	})
	if err != nil {
		log.Printf("[SEARCH] %v", err)
		return response.ErrorWithDetails(c, fiber.StatusInternalServerError, "Search failed", "INTERNAL_ERROR", err.Error())
	}
	return c.JSON(fiber.Map{"results": results})
}

// Filters handles GET /api/search/filters
func (h *SearchHandler) Filters(c *fiber.Ctx) error {
	filters, err := h.search.Filters(c.UserContext())
	if err != nil {
		log.Printf("[SEARCH] %v", err)
		return response.InternalServerError(c, "Failed to fetch filters")
	}
	return c.JSON(filters)
}

// CourseFilters handles GET /api/search/course-filters
func (h *SearchHandler) CourseFilters(c *fiber.Ctx) error {
	filters, err := h.search.CourseFilters(c.UserContext())
	if err != nil {
		log.Printf("[SEARCH] %v", err)
		return response.InternalServerError(c, "Failed to fetch filters")
	}
	return c.JSON(filters)
}
