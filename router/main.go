package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sahilchouksey/pyq-archive/database"
	"github.com/sahilchouksey/pyq-archive/handlers"
	admin_handlers "github.com/sahilchouksey/pyq-archive/handlers/admin"
	course_handlers "github.com/sahilchouksey/pyq-archive/handlers/course"
	department_handlers "github.com/sahilchouksey/pyq-archive/handlers/department"
	page_handlers "github.com/sahilchouksey/pyq-archive/handlers/page"
	question_handlers "github.com/sahilchouksey/pyq-archive/handlers/question"
	search_handlers "github.com/sahilchouksey/pyq-archive/handlers/search"
	university_handlers "github.com/sahilchouksey/pyq-archive/handlers/university"
	"github.com/sahilchouksey/pyq-archive/services"
	"github.com/sahilchouksey/pyq-archive/utils"
	"github.com/sahilchouksey/pyq-archive/utils/cache"
)

// Options carries the optional collaborators of the routes
type Options struct {
	// Cache backs the search filter lists; nil disables caching
	Cache cache.JSONCache
	// MaxImportRecords caps bulk import batches; 0 means unlimited
	MaxImportRecords int
}

func SetupRoutes(app *fiber.App, store database.Storage, opts Options) {
	db := store.DB()

	// Initialize services
	searchService := services.NewSearchService(db, opts.Cache)
	importService := services.NewImportService(db, opts.MaxImportRecords)
	catalogService := services.NewCatalogService(db)

	// Initialize handlers
	universityHandler := university_handlers.NewUniversityHandler(db, searchService)
	departmentHandler := department_handlers.NewDepartmentHandler(db, searchService)
	courseHandler := course_handlers.NewCourseHandler(db, importService, searchService)
	questionHandler := question_handlers.NewQuestionHandler(db, importService, searchService)
	searchHandler := search_handlers.NewSearchHandler(searchService)
	pageHandler := page_handlers.NewPageHandler(catalogService)

	// Operational routes
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Admin routes
	admin := api.Group("/admin")
	admin.Get("/dashboard", utils.MakeHTTPHandleFunc(admin_handlers.GetDashboard, store))

	universities := admin.Group("/universities")
	universities.Get("/", universityHandler.ListUniversities)
	universities.Post("/", universityHandler.CreateUniversity)
	universities.Get("/:id", universityHandler.GetUniversity)
	universities.Put("/:id", universityHandler.UpdateUniversity)
	universities.Delete("/:id", universityHandler.DeleteUniversity)

	departments := admin.Group("/departments")
	departments.Get("/", departmentHandler.ListDepartments)
	departments.Post("/", departmentHandler.CreateDepartment)
	departments.Get("/:id", departmentHandler.GetDepartment)
	departments.Put("/:id", departmentHandler.UpdateDepartment)
	departments.Delete("/:id", departmentHandler.DeleteDepartment)

	courses := admin.Group("/courses")
	courses.Get("/", courseHandler.ListCourses)
	courses.Post("/", courseHandler.CreateCourse)
	// registered before /:id so "bulk" is never taken for an ID
	courses.Post("/bulk", courseHandler.BulkImportCourses)
	courses.Get("/:id", courseHandler.GetCourse)
	courses.Put("/:id", courseHandler.UpdateCourse)
	courses.Delete("/:id", courseHandler.DeleteCourse)

	// Question routes
	questions := api.Group("/questions")
	questions.Get("/", questionHandler.ListQuestions)
	questions.Post("/", questionHandler.CreateQuestion)
	questions.Post("/bulk", questionHandler.BulkImportQuestions)
	questions.Put("/:id", questionHandler.UpdateQuestion)
	questions.Delete("/:id", questionHandler.DeleteQuestion)

	// Search routes
	search := api.Group("/search")
	search.Get("/", searchHandler.SearchQuestions)
	search.Get("/courses", searchHandler.SearchCourses)
	search.Get("/filters", searchHandler.Filters)
	search.Get("/course-filters", searchHandler.CourseFilters)

	// Unknown API paths stay JSON instead of falling through to the page routes
	api.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   fiber.Map{"code": "NOT_FOUND", "message": "Route not found"},
		})
	})

	// Pages; the slug wildcards come last
	app.Get("/", pageHandler.Home)
	app.Get("/admin", pageHandler.Admin)
	app.Get("/:university", pageHandler.University)
	app.Get("/:university/:department", pageHandler.Department)
	app.Get("/:university/:department/:course", pageHandler.Course)
	app.Get("/:university/:department/:course/:year", pageHandler.Year)
}
