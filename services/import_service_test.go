package services_test

import (
	"context"
	"testing"

	"github.com/sahilchouksey/pyq-archive/database/dbtest"
	"github.com/sahilchouksey/pyq-archive/model"
	"github.com/sahilchouksey/pyq-archive/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportCourses_DerivesSlugFromCode(t *testing.T) {
	store := dbtest.New(t)
	fx := dbtest.Seed(t, store)
	svc := services.NewImportService(store.DB(), 100)

	batch, err := services.DecodeCourseBatch([]byte(`{"courses":[{"code":"CSE101","name":"Intro","departmentId":"D1"}]}`))
	require.NoError(t, err)

	result, err := svc.ImportCourses(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)

	var course model.Course
	require.NoError(t, store.DB().Where("code = ?", "CSE101").First(&course).Error)
	assert.Equal(t, "cse101", course.Slug)
	assert.Equal(t, fx.Department.ID, course.DepartmentID)
}

func TestImportCourses_DuplicateInSameBatch(t *testing.T) {
	store := dbtest.New(t)
	dbtest.Seed(t, store)
	svc := services.NewImportService(store.DB(), 100)

	batch := &services.CourseBatch{
		DepartmentID: "D1",
		Courses: []services.CourseRecord{
			{Code: "CSE201", Name: "Algorithms"},
			{Code: "CSE201", Name: "Algorithms again"},
		},
	}

	result, err := svc.ImportCourses(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "CSE201", result.Errors[0].Code)
	assert.Contains(t, result.Errors[0].Error, "already exists")
}

func TestImportCourses_DuplicateAcrossBatches(t *testing.T) {
	store := dbtest.New(t)
	dbtest.Seed(t, store)
	svc := services.NewImportService(store.DB(), 100)

	body := []byte(`{"departmentId":"D1","courses":[{"code":"CSE250","name":"Databases"}]}`)

	first, err := services.DecodeCourseBatch(body)
	require.NoError(t, err)
	result, err := svc.ImportCourses(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Failed)

	second, err := services.DecodeCourseBatch(body)
	require.NoError(t, err)
	result, err = svc.ImportCourses(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "CSE250", result.Errors[0].Code)
	assert.Contains(t, result.Errors[0].Error, "already exists")
}

func TestImportCourses_AccountsForEveryRecord(t *testing.T) {
	store := dbtest.New(t)
	dbtest.Seed(t, store)
	svc := services.NewImportService(store.DB(), 100)

	body := `{"departmentId":"D1","courses":[
		{"code":"CSE135","name":"Already seeded"},
		{"name":"No code"},
		{"code":"CSE300","name":"Networks","credits":"3.0","semester":"2-1"},
		{"code":"CSE301","name":"Bad credits","credits":"three"},
		{"code":"CSE302"}
	]}`
	batch, err := services.DecodeCourseBatch([]byte(body))
	require.NoError(t, err)

	result, err := svc.ImportCourses(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, len(batch.Courses), result.Created+result.Failed)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 4, result.Failed)

	codes := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []string{"CSE135", "UNKNOWN", "CSE301", "CSE302"}, codes)
	assert.Contains(t, result.Errors[1].Error, "`code`")
	assert.Contains(t, result.Errors[2].Error, "`credits`")
	assert.Contains(t, result.Errors[3].Error, "`name`")

	require.Len(t, result.Results, 1)
	created := result.Results[0]
	require.NotNil(t, created.Credits)
	require.NotNil(t, created.Semester)
	assert.Equal(t, 3.0, *created.Credits)
	assert.Equal(t, 3, *created.Semester)
}

func TestImportCourses_ExplicitSlugWins(t *testing.T) {
	store := dbtest.New(t)
	dbtest.Seed(t, store)
	svc := services.NewImportService(store.DB(), 100)

	result, err := svc.ImportCourses(context.Background(), &services.CourseBatch{
		Courses: []services.CourseRecord{{Code: "MATH 101", Name: "Calculus", DepartmentID: "D1", Slug: " calc "}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Created)
	assert.Equal(t, "calc", result.Results[0].Slug)
}

func TestImportCourses_RejectsOversizedBatch(t *testing.T) {
	store := dbtest.New(t)
	svc := services.NewImportService(store.DB(), 1)

	_, err := svc.ImportCourses(context.Background(), &services.CourseBatch{
		DepartmentID: "D1",
		Courses:      []services.CourseRecord{{Code: "A", Name: "A"}, {Code: "B", Name: "B"}},
	})
	var batchErr *services.InvalidBatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Contains(t, batchErr.Reason, "limit 1")
}

func TestImportQuestions_SecondRecordMissingYear(t *testing.T) {
	store := dbtest.New(t)
	dbtest.Seed(t, store)
	svc := services.NewImportService(store.DB(), 100)

	body := `{"questions":[
		{"courseId":"C1","year":2023,"content":"Explain stacks."},
		{"courseId":"C1","content":"Explain queues."}
	]}`
	batch, err := services.DecodeQuestionBatch([]byte(body))
	require.NoError(t, err)

	result, err := svc.ImportQuestions(context.Background(), batch)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Index)
	assert.Equal(t, 2, result.Errors[0].QuestionNo)
	assert.Contains(t, result.Errors[0].Error, "year")
}

func TestImportQuestions_AppliesDefaults(t *testing.T) {
	store := dbtest.New(t)
	dbtest.Seed(t, store)
	svc := services.NewImportService(store.DB(), 100)

	body := `{"courseId":"C1","year":"2022","questions":[
		{"content":"Define a heap.","marks":"5"},
		{"content":"Define a trie.","examType":"Mid","questionNo":7,
		 "answer":{"content":"A prefix tree.","source":"CLRS"}}
	]}`
	batch, err := services.DecodeQuestionBatch([]byte(body))
	require.NoError(t, err)

	result, err := svc.ImportQuestions(context.Background(), batch)
	require.NoError(t, err)
	require.Equal(t, 2, result.Created)

	first, second := result.Results[0], result.Results[1]
	assert.Equal(t, 2022, first.Year)
	assert.Equal(t, model.DefaultExamType, first.ExamType)
	require.NotNil(t, first.QuestionNo)
	assert.Equal(t, 1, *first.QuestionNo)
	require.NotNil(t, first.Marks)
	assert.Equal(t, 5, *first.Marks)
	assert.Nil(t, first.Answer)

	assert.Equal(t, "Mid", second.ExamType)
	require.NotNil(t, second.QuestionNo)
	assert.Equal(t, 7, *second.QuestionNo)

	var answer model.Answer
	require.NoError(t, store.DB().Where("question_id = ?", second.ID).First(&answer).Error)
	assert.Equal(t, "A prefix tree.", answer.Content)
	require.NotNil(t, answer.Source)
	assert.Equal(t, "CLRS", *answer.Source)
	assert.Nil(t, answer.Contributor)
}

func TestImportQuestions_BadNumericFailsOnlyItsRecord(t *testing.T) {
	store := dbtest.New(t)
	dbtest.Seed(t, store)
	svc := services.NewImportService(store.DB(), 100)

	body := `{"courseId":"C1","questions":[
		{"year":"twenty","content":"A"},
		{"year":2021,"content":"B","marks":"ten"},
		{"year":2021,"content":"C"},
		{"year":2021,"content":"   "}
	]}`
	batch, err := services.DecodeQuestionBatch([]byte(body))
	require.NoError(t, err)

	result, err := svc.ImportQuestions(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, len(batch.Questions), result.Created+result.Failed)
	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Contains(t, result.Errors[0].Error, "`year`")
	assert.Equal(t, 2, result.Errors[1].Index)
	assert.Contains(t, result.Errors[1].Error, "`marks`")
	assert.Equal(t, 4, result.Errors[2].Index)
	assert.Contains(t, result.Errors[2].Error, "`content`")

	var count int64
	require.NoError(t, store.DB().Model(&model.Question{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestQuestionFromRecord_NoFallbackNumber(t *testing.T) {
	q, err := services.QuestionFromRecord(services.QuestionRecord{
		CourseID: "C1",
		Year:     services.NumericFromInt(2020),
		Content:  "Prove it.",
	}, services.QuestionDefaults{}, nil)
	require.NoError(t, err)
	assert.Nil(t, q.QuestionNo)
	assert.Equal(t, "Final", q.ExamType)

	_, err = services.QuestionFromRecord(services.QuestionRecord{Year: services.NumericFromInt(2020), Content: "x"}, services.QuestionDefaults{}, nil)
	var recErr *services.RecordValidationError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "courseId", recErr.Field)
}

func TestImportQuestions_WrongTypeFailsOnlyItsRecord(t *testing.T) {
	store := dbtest.New(t)
	dbtest.Seed(t, store)
	svc := services.NewImportService(store.DB(), 100)

	batch, err := services.DecodeQuestionBatch([]byte(`{"courseId":"C1","year":2022,"questions":[
		{"content":"Define a pointer"},
		{"content":42},
		"abc"
	]}`))
	require.NoError(t, err)

	result, err := svc.ImportQuestions(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 2, result.Errors[0].Index)
	assert.Contains(t, result.Errors[0].Error, "content")
	assert.Equal(t, 3, result.Errors[1].Index)
	assert.Equal(t, "missing required field `content`", result.Errors[1].Error)

	var count int64
	require.NoError(t, store.DB().Model(&model.Question{}).Where("course_id = ?", "C1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
