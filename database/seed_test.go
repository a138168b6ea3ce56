package database_test

import (
	"testing"

	"github.com/sahilchouksey/pyq-archive/database"
	"github.com/sahilchouksey/pyq-archive/database/dbtest"
	"github.com/sahilchouksey/pyq-archive/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSeeds(t *testing.T) {
	store := dbtest.New(t)
	db := store.DB()

	require.NoError(t, database.RunSeeds(db))

	var universities, departments, courses, questions int64
	db.Model(&model.University{}).Count(&universities)
	db.Model(&model.Department{}).Count(&departments)
	db.Model(&model.Course{}).Count(&courses)
	db.Model(&model.Question{}).Count(&questions)

	assert.EqualValues(t, 7, universities)
	assert.EqualValues(t, 65, departments)
	// every seeded university has a CSE department with ten courses
	assert.EqualValues(t, 70, courses)
	assert.EqualValues(t, 1, questions)

	var q model.Question
	require.NoError(t, db.Preload("Answer").First(&q).Error)
	require.NotNil(t, q.Answer)
	assert.Equal(t, 2023, q.Year)
	assert.Equal(t, "Final", q.ExamType)

	var course model.Course
	require.NoError(t, db.Where("code = ?", "CSE221").First(&course).Error)
	assert.Equal(t, "cse221", course.Slug)
}

func TestRunSeeds_Idempotent(t *testing.T) {
	store := dbtest.New(t)
	db := store.DB()

	require.NoError(t, database.RunSeeds(db))
	require.NoError(t, database.RunSeeds(db))

	var universities, questions int64
	db.Model(&model.University{}).Count(&universities)
	db.Model(&model.Question{}).Count(&questions)
	assert.EqualValues(t, 7, universities)
	assert.EqualValues(t, 1, questions)
}
