package page

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/pyq-archive/services"
	"github.com/sahilchouksey/pyq-archive/views"
	"gorm.io/gorm"
)

// PageHandler renders the browsing pages
type PageHandler struct {
	catalog *services.CatalogService
}

// NewPageHandler creates a new page handler
func NewPageHandler(catalog *services.CatalogService) *PageHandler {
	return &PageHandler{catalog: catalog}
}

func render(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	return c.Status(status).Render(name, data, views.Layout)
}

func notFound(c *fiber.Ctx, message string) error {
	return render(c, fiber.StatusNotFound, "not_found", fiber.Map{"Title": "Not Found", "Message": message})
}

// failed renders the not-found page for slug misses and the database error page otherwise
func failed(c *fiber.Ctx, err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(c, message)
	}
	log.Printf("[PAGE] %s %s: %v", c.Method(), c.Path(), err)
	return render(c, fiber.StatusInternalServerError, "db_error", fiber.Map{"Title": "Database Connection Error"})
}

// Home handles GET /
func (h *PageHandler) Home(c *fiber.Ctx) error {
	universities, err := h.catalog.ListUniversities(c.UserContext())
	if err != nil {
		return failed(c, err, "")
	}
	return render(c, fiber.StatusOK, "home", fiber.Map{"Title": "Universities", "Universities": universities})
}

// Admin handles GET /admin
func (h *PageHandler) Admin(c *fiber.Ctx) error {
	dashboard, err := h.catalog.Dashboard(c.UserContext())
	if err != nil {
		return failed(c, err, "")
	}
	return render(c, fiber.StatusOK, "admin", fiber.Map{"Title": "Admin Dashboard", "Dashboard": dashboard})
}

// University handles GET /:university
func (h *PageHandler) University(c *fiber.Ctx) error {
	university, err := h.catalog.UniversityBySlug(c.UserContext(), c.Params("university"))
	if err != nil {
		return failed(c, err, "University not found")
	}
	return render(c, fiber.StatusOK, "university", fiber.Map{"Title": university.Name, "University": university})
}

// Department handles GET /:university/:department
func (h *PageHandler) Department(c *fiber.Ctx) error {
	view, err := h.catalog.DepartmentBySlugs(c.UserContext(), c.Params("university"), c.Params("department"))
	if err != nil {
		return failed(c, err, "Department not found")
	}
	return render(c, fiber.StatusOK, "department", fiber.Map{"Title": view.Department.Name, "View": view})
}

// Course handles GET /:university/:department/:course
func (h *PageHandler) Course(c *fiber.Ctx) error {
	ctx := c.UserContext()
	course, err := h.catalog.CourseBySlugs(ctx, c.Params("university"), c.Params("department"), c.Params("course"))
	if err != nil {
		return failed(c, err, "Course not found")
	}

	years, total, err := h.catalog.CourseYears(ctx, course.ID)
	if err != nil {
		return failed(c, err, "")
	}
	return render(c, fiber.StatusOK, "course", fiber.Map{
		"Title":  course.Code,
		"Course": course,
		"Years":  years,
		"Total":  total,
	})
}

// Year handles GET /:university/:department/:course/:year?type=
func (h *PageHandler) Year(c *fiber.Ctx) error {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil {
		return notFound(c, "Year not found")
	}

	ctx := c.UserContext()
	course, err := h.catalog.CourseBySlugs(ctx, c.Params("university"), c.Params("department"), c.Params("course"))
	if err != nil {
		return failed(c, err, "Course not found")
	}

	view, err := h.catalog.YearQuestions(ctx, course, year, c.Query("type"))
	if err != nil {
		return failed(c, err, "")
	}
	return render(c, fiber.StatusOK, "year", fiber.Map{
		"Title": course.Code + " " + strconv.Itoa(year),
		"View":  view,
	})
}
