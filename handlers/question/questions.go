package question

import (
	"errors"
	"io"
	"log"
	"strconv"
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

// QuestionHandler handles question-related requests
type QuestionHandler struct {
	db       *gorm.DB
	importer *services.ImportService
	search   *services.SearchService
}

// NewQuestionHandler creates a new question handler
func NewQuestionHandler(db *gorm.DB, importer *services.ImportService, search *services.SearchService) *QuestionHandler {
	return &QuestionHandler{
		db:       db,
		importer: importer,
		search:   search,
	}
}

// UpdateQuestionRequest represents the request body for updating a question.
// An answer with empty content removes the existing answer.
type UpdateQuestionRequest struct {
	Year       services.NumericField  `json:"year"`
	ExamType   string                 `json:"examType"`
	QuestionNo services.NumericField  `json:"questionNo"`
	Marks      services.NumericField  `json:"marks"`
	Content    string                 `json:"content"`
	Answer     *services.AnswerRecord `json:"answer"`
}

// ListQuestions handles GET /api/questions?courseId=&year=
func (h *QuestionHandler) ListQuestions(c *fiber.Ctx) error {
	query := h.db.WithContext(c.UserContext()).Preload("Answer").Preload("Course")

	if courseID := c.Query("courseId"); courseID != "" {
		query = query.Where("course_id = ?", courseID)
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return response.BadRequest(c, "year must be a number")
		}
		query = query.Where("year = ?", year)
	}

	questions := []model.Question{}
	if err := query.
		Order("year DESC").
		Order("exam_type ASC").
		Order("question_no ASC").
		Find(&questions).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch questions")
	}
	return response.Success(c, questions)
}

// CreateQuestion handles POST /api/questions
func (h *QuestionHandler) CreateQuestion(c *fiber.Ctx) error {
	var req services.QuestionRecord
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	question, err := services.QuestionFromRecord(req, services.QuestionDefaults{}, nil)
	if err != nil {
		return handlers.RespondRecordError(c, err, "Failed to create question")
	}

	db := h.db.WithContext(c.UserContext())

	var course model.Course
	if err := db.First(&course, "id = ?", question.CourseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.BadRequest(c, "Course does not exist")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	// question and answer are written together
	if err := db.Create(question).Error; err != nil {
		log.Printf("[API] Failed to create question for course %s: %v", question.CourseID, err)
		return response.InternalServerError(c, "Failed to create question")
	}

	h.search.InvalidateFilters(c.UserContext())
	return response.Created(c, question)
}

// UpdateQuestion handles PUT /api/questions/:id
func (h *QuestionHandler) UpdateQuestion(c *fiber.Ctx) error {
	id := c.Params("id")

	var req UpdateQuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	db := h.db.WithContext(c.UserContext())

	var question model.Question
	if err := db.Preload("Answer").First(&question, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Question not found")
		}
		return response.InternalServerError(c, "Failed to fetch question")
	}

	if req.Year.IsSet() {
		year, err := req.Year.Int()
		if err != nil {
			return response.BadRequest(c, "year must be a number")
		}
		question.Year = year
	}
	if examType := validation.SanitizeString(req.ExamType); examType != "" {
		question.ExamType = examType
	}
	if req.QuestionNo.IsSet() {
		n, err := req.QuestionNo.Int()
		if err != nil {
			return response.BadRequest(c, "questionNo must be a number")
		}
		question.QuestionNo = &n
	}
	if req.Marks.IsSet() {
		marks, err := req.Marks.Int()
		if err != nil {
			return response.BadRequest(c, "marks must be a number")
		}
		question.Marks = &marks
	}
	if content := strings.TrimSpace(req.Content); content != "" {
		question.Content = content
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		answer := question.Answer
		question.Answer = nil
		if err := tx.Omit("Answer", "Course").Save(&question).Error; err != nil {
			return err
		}

		switch {
		case req.Answer == nil:
			question.Answer = answer
			return nil
		case strings.TrimSpace(req.Answer.Content) == "":
			return tx.Where("question_id = ?", question.ID).Delete(&model.Answer{}).Error
		}

		if answer == nil {
			answer = &model.Answer{QuestionID: question.ID}
		}
		answer.Content = strings.TrimSpace(req.Answer.Content)
		answer.Source = optional(req.Answer.Source)
		answer.Contributor = optional(req.Answer.Contributor)
		if err := tx.Save(answer).Error; err != nil {
			return err
		}
		question.Answer = answer
		return nil
	})
	if err != nil {
		log.Printf("[API] Failed to update question %s: %v", id, err)
		return response.InternalServerError(c, "Failed to update question")
	}

	h.search.InvalidateFilters(c.UserContext())
	return response.SuccessWithMessage(c, "Question updated successfully", question)
}

// DeleteQuestion handles DELETE /api/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *fiber.Ctx) error {
	id := c.Params("id")
	db := h.db.WithContext(c.UserContext())

	var question model.Question
	if err := db.First(&question, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Question not found")
		}
		return response.InternalServerError(c, "Failed to fetch question")
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteQuestion(tx, id)
	}); err != nil {
		log.Printf("[API] Failed to delete question %s: %v", id, err)
		return response.InternalServerError(c, "Failed to delete question")
	}

	h.search.InvalidateFilters(c.UserContext())
	return response.SuccessWithMessage(c, "Question deleted successfully", nil)
}

// BulkImportQuestions handles POST /api/questions/bulk
//
// The JSON document may arrive as the request body or as a multipart "file".
func (h *QuestionHandler) BulkImportQuestions(c *fiber.Ctx) error {
	body, err := questionDocument(c)
	if err != nil {
		return handlers.RespondImportError(c, err)
	}

	batch, err := services.DecodeQuestionBatch(body)
	if err != nil {
		return handlers.RespondImportError(c, err)
	}

	result, err := h.importer.ImportQuestions(c.UserContext(), batch)
	if err != nil {
		return handlers.RespondImportError(c, err)
	}

	if result.Created > 0 {
		h.search.InvalidateFilters(c.UserContext())
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func questionDocument(c *fiber.Ctx) ([]byte, error) {
	if !strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		return c.Body(), nil
	}

	file, err := c.FormFile("file")
	if err != nil {
		return nil, &services.InvalidBatchError{Reason: "Missing JSON file in form field \"file\""}
	}
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
