package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/pyq-archive/database"
	"github.com/sahilchouksey/pyq-archive/database/dbtest"
	"github.com/sahilchouksey/pyq-archive/model"
	"github.com/sahilchouksey/pyq-archive/router"
	"github.com/sahilchouksey/pyq-archive/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"
)

func newApp(store database.Storage) *fiber.App {
	app := fiber.New(fiber.Config{Views: views.New()})
	router.SetupRoutes(app, store, router.Options{MaxImportRecords: 100})
	return app
}

func setup(t *testing.T) (*fiber.App, *database.GORMStore) {
	t.Helper()
	store := dbtest.New(t)
	dbtest.Seed(t, store)
	return newApp(store), store
}

func do(t *testing.T, app *fiber.App, method, path, contentType string, body io.Reader) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string, out interface{}) int {
	t.Helper()
	status, raw := do(t, app, method, path, fiber.MIMEApplicationJSON, strings.NewReader(body))
	if out != nil {
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}
	return status
}

type courseBulkResponse struct {
	Created int `json:"created"`
	Failed  int `json:"failed"`
	Errors  []struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	} `json:"errors"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestPing(t *testing.T) {
	app, _ := setup(t)
	status, raw := do(t, app, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}

func TestBulkCourses_JSON(t *testing.T) {
	app, store := setup(t)

	var out courseBulkResponse
	status := doJSON(t, app, http.MethodPost, "/api/admin/courses/bulk",
		`{"courses":[{"code":"CSE101","name":"Intro","departmentId":"D1"}]}`, &out)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, out.Created)
	assert.Equal(t, 0, out.Failed)
	assert.NotNil(t, out.Errors)
	assert.Empty(t, out.Errors)

	var course model.Course
	require.NoError(t, store.DB().Where("code = ?", "CSE101").First(&course).Error)
	assert.Equal(t, "cse101", course.Slug)
}

func TestBulkCourses_DuplicateWithinBatch(t *testing.T) {
	app, _ := setup(t)

	var out courseBulkResponse
	status := doJSON(t, app, http.MethodPost, "/api/admin/courses/bulk",
		`{"courses":[{"code":"CSE201","name":"A","departmentId":"D1"},{"code":"CSE201","name":"B","departmentId":"D1"}]}`, &out)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, out.Created)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0].Error, "already exists")
}

func TestBulkCourses_RejectsMalformedBatches(t *testing.T) {
	app, _ := setup(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "invalid json", body: `{"courses":`, want: "Invalid JSON in request body"},
		{name: "not an array", body: `{"courses":"CSE101"}`, want: "Expected an array of courses"},
		{name: "missing", body: `{}`, want: "Expected an array of courses"},
		{name: "empty", body: `{"courses":[]}`, want: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out envelope
			status := doJSON(t, app, http.MethodPost, "/api/admin/courses/bulk", tt.body, &out)
			assert.Equal(t, http.StatusBadRequest, status)
			require.NotNil(t, out.Error)
			assert.Contains(t, out.Error.Message, tt.want)
		})
	}
}

func TestBulkCourses_WrongFieldTypeFailsOnlyItsRecord(t *testing.T) {
	app, store := setup(t)

	var out courseBulkResponse
	status := doJSON(t, app, http.MethodPost, "/api/admin/courses/bulk",
		`{"departmentId":"D1","courses":[{"code":901,"name":"Numeric code"},{"code":"CSE310","name":"Operating Systems"}]}`, &out)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, out.Created)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0].Error, "code")

	var count int64
	require.NoError(t, store.DB().Model(&model.Course{}).Where("code = ?", "CSE310").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestBulkCourses_CSVBody(t *testing.T) {
	app, _ := setup(t)

	doc := "code,name,semester,credits\nCSE301,Networks,3-1,3\nCSE135,Dup,,\n"
	status, raw := do(t, app, http.MethodPost, "/api/admin/courses/bulk?departmentId=D1", "text/csv", strings.NewReader(doc))
	require.Equal(t, http.StatusOK, status, string(raw))

	var out courseBulkResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, 1, out.Created)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, "CSE135", out.Errors[0].Code)
}

func TestBulkCourses_MultipartCSV(t *testing.T) {
	app, store := setup(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("departmentId", "D1"))
	part, err := w.CreateFormFile("file", "courses.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Code,Name\nCSE401,Compilers\nCSE402,Graphics\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	status, raw := do(t, app, http.MethodPost, "/api/admin/courses/bulk", w.FormDataContentType(), &body)
	require.Equal(t, http.StatusOK, status, string(raw))

	var out courseBulkResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, 2, out.Created)

	var count int64
	require.NoError(t, store.DB().Model(&model.Course{}).Where("department_id = ?", "D1").Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestBulkQuestions_PartialFailure(t *testing.T) {
	app, _ := setup(t)

	var out struct {
		Success bool `json:"success"`
		Created int  `json:"created"`
		Failed  int  `json:"failed"`
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
		Errors []struct {
			Index      int    `json:"index"`
			QuestionNo int    `json:"questionNo"`
			Error      string `json:"error"`
		} `json:"errors"`
	}
	status := doJSON(t, app, http.MethodPost, "/api/questions/bulk",
		`{"questions":[{"courseId":"C1","year":2023,"content":"Q one"},{"courseId":"C1","content":"Q two"}]}`, &out)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, out.Success)
	assert.Equal(t, 1, out.Created)
	assert.Equal(t, 1, out.Failed)
	assert.Len(t, out.Results, 1)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, 2, out.Errors[0].Index)
	assert.Contains(t, out.Errors[0].Error, "year")
}

func TestBulkQuestions_WrongFieldTypeFailsOnlyItsRecord(t *testing.T) {
	app, store := setup(t)

	var out struct {
		Created int `json:"created"`
		Failed  int `json:"failed"`
		Errors  []struct {
			Index int    `json:"index"`
			Error string `json:"error"`
		} `json:"errors"`
	}
	status := doJSON(t, app, http.MethodPost, "/api/questions/bulk",
		`{"questions":[{"courseId":"C1","year":2023,"content":"ok"},{"courseId":"C1","year":2023,"content":42}]}`, &out)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, out.Created)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, 2, out.Errors[0].Index)
	assert.Contains(t, out.Errors[0].Error, "content")

	var count int64
	require.NoError(t, store.DB().Model(&model.Question{}).Where("content = ?", "ok").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestBulkQuestions_NonArrayRejectedBeforeWrite(t *testing.T) {
	app, store := setup(t)

	var before int64
	require.NoError(t, store.DB().Model(&model.Question{}).Count(&before).Error)

	var out envelope
	status := doJSON(t, app, http.MethodPost, "/api/questions/bulk", `{"questions":"x"}`, &out)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, out.Error)
	assert.Contains(t, out.Error.Message, "Expected an array of questions")

	var after int64
	require.NoError(t, store.DB().Model(&model.Question{}).Count(&after).Error)
	assert.Equal(t, before, after)
}

func TestBulkQuestions_MultipartDocument(t *testing.T) {
	app, store := setup(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "questions.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(`{"courseId":"C1","year":2020,"examType":"Mid","questions":[{"content":"A"},{"content":"B"}]}`))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	status, raw := do(t, app, http.MethodPost, "/api/questions/bulk", w.FormDataContentType(), &body)
	require.Equal(t, http.StatusOK, status, string(raw))

	var questions []model.Question
	require.NoError(t, store.DB().Order("question_no ASC").Find(&questions).Error)
	require.Len(t, questions, 2)
	assert.Equal(t, "Mid", questions[0].ExamType)
	assert.Equal(t, 2, *questions[1].QuestionNo)
}

func TestQuestions_CRUD(t *testing.T) {
	app, store := setup(t)

	var created envelope
	status := doJSON(t, app, http.MethodPost, "/api/questions",
		`{"courseId":"C1","year":"2022","marks":8,"content":"Define recursion.","answer":{"content":"A function calling itself."}}`, &created)
	require.Equal(t, http.StatusCreated, status)
	var q model.Question
	require.NoError(t, json.Unmarshal(created.Data, &q))
	require.NotNil(t, q.Answer)

	var missing envelope
	status = doJSON(t, app, http.MethodPost, "/api/questions", `{"courseId":"C1","content":"No year"}`, &missing)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, missing.Error.Message, "year")

	status = doJSON(t, app, http.MethodPost, "/api/questions", `{"courseId":"NOPE","year":2022,"content":"x"}`, &missing)
	assert.Equal(t, http.StatusBadRequest, status)

	var updated envelope
	status = doJSON(t, app, http.MethodPut, "/api/questions/"+q.ID, `{"marks":"12","answer":{"content":""}}`, &updated)
	require.Equal(t, http.StatusOK, status)
	var answers int64
	require.NoError(t, store.DB().Model(&model.Answer{}).Count(&answers).Error)
	assert.Equal(t, int64(0), answers)

	status = doJSON(t, app, http.MethodPut, "/api/questions/"+q.ID, `{"answer":{"content":"New answer","contributor":"TA"}}`, &updated)
	require.Equal(t, http.StatusOK, status)
	var answer model.Answer
	require.NoError(t, store.DB().Where("question_id = ?", q.ID).First(&answer).Error)
	assert.Equal(t, "New answer", answer.Content)

	var list envelope
	status = doJSON(t, app, http.MethodGet, "/api/questions?courseId=C1&year=2022", "", &list)
	require.Equal(t, http.StatusOK, status)
	var listed []model.Question
	require.NoError(t, json.Unmarshal(list.Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, 12, *listed[0].Marks)

	status = doJSON(t, app, http.MethodDelete, "/api/questions/"+q.ID, "", nil)
	assert.Equal(t, http.StatusOK, status)
	status = doJSON(t, app, http.MethodDelete, "/api/questions/"+q.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUniversities_CreateDuplicateAndCascadeDelete(t *testing.T) {
	app, store := setup(t)

	var created envelope
	status := doJSON(t, app, http.MethodPost, "/api/admin/universities", `{"name":"Dhaka University"}`, &created)
	require.Equal(t, http.StatusCreated, status)
	var u model.University
	require.NoError(t, json.Unmarshal(created.Data, &u))
	assert.Equal(t, "dhaka-university", u.Slug)

	var dup envelope
	status = doJSON(t, app, http.MethodPost, "/api/admin/universities", `{"name":"Other","slug":"kuet"}`, &dup)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "DUPLICATE", dup.Error.Code)

	var invalid envelope
	status = doJSON(t, app, http.MethodPost, "/api/admin/universities", `{"slug":"x"}`, &invalid)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", invalid.Error.Code)

	var list envelope
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/api/admin/universities", "", &list))
	var items []struct {
		Slug            string `json:"slug"`
		DepartmentCount int64  `json:"departmentCount"`
	}
	require.NoError(t, json.Unmarshal(list.Data, &items))
	require.Len(t, items, 2)
	for _, it := range items {
		if it.Slug == "kuet" {
			assert.Equal(t, int64(1), it.DepartmentCount)
		}
	}

	require.NoError(t, store.DB().Create(&model.Question{CourseID: "C1", Year: 2023, ExamType: "Final", Content: "x",
		Answer: &model.Answer{Content: "y"}}).Error)

	status = doJSON(t, app, http.MethodDelete, "/api/admin/universities/U1", "", nil)
	require.Equal(t, http.StatusOK, status)

	for _, table := range []interface{}{&model.Department{}, &model.Course{}, &model.Question{}, &model.Answer{}} {
		var n int64
		require.NoError(t, store.DB().Model(table).Count(&n).Error)
		assert.Equal(t, int64(0), n, fmt.Sprintf("%T", table))
	}

	status = doJSON(t, app, http.MethodGet, "/api/admin/universities/U1", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDepartments_SlugUniqueWithinUniversity(t *testing.T) {
	app, store := setup(t)
	require.NoError(t, store.DB().Create(&model.University{ID: "U2", Name: "Other", Slug: "other"}).Error)

	var out envelope
	status := doJSON(t, app, http.MethodPost, "/api/admin/departments", `{"name":"CSE","slug":"cse","universityId":"U1"}`, &out)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "DUPLICATE", out.Error.Code)

	status = doJSON(t, app, http.MethodPost, "/api/admin/departments", `{"name":"CSE","slug":"cse","universityId":"U2"}`, &out)
	assert.Equal(t, http.StatusCreated, status)

	status = doJSON(t, app, http.MethodPost, "/api/admin/departments", `{"name":"CSE","universityId":"missing"}`, &out)
	assert.Equal(t, http.StatusBadRequest, status)

	var list envelope
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/api/admin/departments?universityId=U1", "", &list))
	var items []struct {
		Slug        string `json:"slug"`
		CourseCount int64  `json:"courseCount"`
		University  struct {
			Slug string `json:"slug"`
		} `json:"university"`
	}
	require.NoError(t, json.Unmarshal(list.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].CourseCount)
	assert.Equal(t, "kuet", items[0].University.Slug)
}

func TestCourses_CreateAndDuplicate(t *testing.T) {
	app, _ := setup(t)

	var out envelope
	status := doJSON(t, app, http.MethodPost, "/api/admin/courses", `{"code":"CSE 300","name":"Project","departmentId":"D1","semester":"4-2","credits":1.5}`, &out)
	require.Equal(t, http.StatusCreated, status)
	var c model.Course
	require.NoError(t, json.Unmarshal(out.Data, &c))
	assert.Equal(t, "cse-300", c.Slug)
	assert.Equal(t, 8, *c.Semester)

	status = doJSON(t, app, http.MethodPost, "/api/admin/courses", `{"code":"CSE135","name":"Again","departmentId":"D1"}`, &out)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "DUPLICATE", out.Error.Code)

	var list envelope
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/api/admin/courses?departmentId=D1", "", &list))
	var items []struct {
		Code          string `json:"code"`
		QuestionCount int64  `json:"questionCount"`
	}
	require.NoError(t, json.Unmarshal(list.Data, &items))
	assert.Len(t, items, 2)
}

func TestSearch_EmptyReturnsEmptyResults(t *testing.T) {
	app, _ := setup(t)
	status, raw := do(t, app, http.MethodGet, "/api/search", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"results":[]}`, string(raw))

	status, _ = do(t, app, http.MethodGet, "/api/search?year=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSearch_Endpoints(t *testing.T) {
	app, store := setup(t)
	require.NoError(t, store.DB().Create(&model.Question{CourseID: "C1", Year: 2023, ExamType: "Final", Content: "Balance an AVL tree"}).Error)

	var found struct {
		Results []model.Question `json:"results"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/api/search?q=avl&university=U1", "", &found))
	require.Len(t, found.Results, 1)

	var courses struct {
		Results []struct {
			Code          string `json:"code"`
			QuestionCount int64  `json:"questionCount"`
		} `json:"results"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/api/search/courses?q=cse", "", &courses))
	require.Len(t, courses.Results, 1)
	assert.Equal(t, int64(1), courses.Results[0].QuestionCount)

	var filters struct {
		Years     []int    `json:"years"`
		ExamTypes []string `json:"examTypes"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/api/search/filters", "", &filters))
	assert.Equal(t, []int{2023}, filters.Years)
	assert.Equal(t, []string{"Final"}, filters.ExamTypes)

	var courseFilters struct {
		Semesters []int `json:"semesters"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/api/search/course-filters", "", &courseFilters))
	assert.Len(t, courseFilters.Semesters, 8)
}

func TestDashboard(t *testing.T) {
	app, _ := setup(t)
	var out envelope
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/api/admin/dashboard", "", &out))
	var d struct {
		Counts map[string]int64 `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &d))
	assert.Equal(t, int64(1), d.Counts["courses"])
}

func TestUnknownAPIRouteIsJSON(t *testing.T) {
	app, _ := setup(t)
	var out envelope
	status := doJSON(t, app, http.MethodGet, "/api/nothing/here", "", &out)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", out.Error.Code)
}

func TestPages(t *testing.T) {
	app, store := setup(t)
	require.NoError(t, store.DB().Create(&model.Question{CourseID: "C1", Year: 2023, ExamType: "Final", Marks: intPtr(7),
		Content: "Explain hashing.", Answer: &model.Answer{Content: "Mapping keys to buckets."}}).Error)

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/", http.StatusOK, "KUET"},
		{"/admin", http.StatusOK, "Admin Dashboard"},
		{"/kuet", http.StatusOK, "Computer Science &amp; Engineering"},
		{"/kuet/cse", http.StatusOK, "CSE135"},
		{"/kuet/cse/cse135", http.StatusOK, "2023"},
		{"/kuet/cse/cse135/2023", http.StatusOK, "Explain hashing."},
		{"/kuet/cse/cse135/2023?type=Mid", http.StatusOK, "No questions found"},
		{"/nowhere", http.StatusNotFound, "University not found"},
		{"/kuet/eee", http.StatusNotFound, "Department not found"},
		{"/kuet/cse/none", http.StatusNotFound, "Course not found"},
		{"/kuet/cse/cse135/latest", http.StatusNotFound, "Year not found"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			status, raw := do(t, app, http.MethodGet, tt.path, "", nil)
			assert.Equal(t, tt.status, status)
			assert.Contains(t, string(raw), tt.want)
		})
	}
}

func TestDepartmentPage_DatabaseError(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	store, err := database.Open(sqlite.Open(dsn), logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)
	require.NoError(t, store.Init())
	app := newApp(store)
	require.NoError(t, store.Close())

	status, raw := do(t, app, http.MethodGet, "/kuet/cse", "", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(raw), "Database Connection Error")
}

func intPtr(v int) *int { return &v }
