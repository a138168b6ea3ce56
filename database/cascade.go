package database

import (
	"github.com/sahilchouksey/pyq-archive/model"
	"gorm.io/gorm"
)

// Hard deletes down the hierarchy. Each function expects to run inside a
// transaction and removes children before parents, so it does not rely on
// the database enforcing ON DELETE CASCADE.

// DeleteQuestion removes a question and its answer
func DeleteQuestion(tx *gorm.DB, id string) error {
	if err := tx.Where("question_id = ?", id).Delete(&model.Answer{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&model.Question{}).Error
}

// DeleteCourse removes a course with all its questions and answers
func DeleteCourse(tx *gorm.DB, id string) error {
	if err := tx.Where("question_id IN (SELECT id FROM questions WHERE course_id = ?)", id).
		Delete(&model.Answer{}).Error; err != nil {
		return err
	}
	if err := tx.Where("course_id = ?", id).Delete(&model.Question{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&model.Course{}).Error
}

// DeleteDepartment removes a department and everything beneath it
func DeleteDepartment(tx *gorm.DB, id string) error {
	var courseIDs []string
	if err := tx.Model(&model.Course{}).Where("department_id = ?", id).Pluck("id", &courseIDs).Error; err != nil {
		return err
	}
	for _, courseID := range courseIDs {
		if err := DeleteCourse(tx, courseID); err != nil {
			return err
		}
	}
	return tx.Where("id = ?", id).Delete(&model.Department{}).Error
}

// DeleteUniversity removes a university and everything beneath it
func DeleteUniversity(tx *gorm.DB, id string) error {
	var departmentIDs []string
	if err := tx.Model(&model.Department{}).Where("university_id = ?", id).Pluck("id", &departmentIDs).Error; err != nil {
		return err
	}
	for _, departmentID := range departmentIDs {
		if err := DeleteDepartment(tx, departmentID); err != nil {
			return err
		}
	}
	return tx.Where("id = ?", id).Delete(&model.University{}).Error
}

// CountBy counts rows of table grouped by column, restricted to the given
// column values. Values with no rows are absent from the map.
func CountBy(db *gorm.DB, table interface{}, column string, ids []string) (map[string]int64, error) {
	out := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		GroupKey string
		Count    int64
	}
	if err := db.Model(table).
		Select(column+" AS group_key, COUNT(*) AS count").
		Where(column+" IN ?", ids).
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.GroupKey] = r.Count
	}
	return out, nil
}
