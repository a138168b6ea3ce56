package database

import (
	"fmt"
	"log"

	"github.com/sahilchouksey/pyq-archive/model"
	"github.com/sahilchouksey/pyq-archive/utils/slug"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	// Run seeds in order (respecting foreign key constraints)
	if err := s.SeedUniversities(); err != nil {
		return fmt.Errorf("failed to seed universities: %w", err)
	}

	if err := s.SeedCourses(); err != nil {
		return fmt.Errorf("failed to seed courses: %w", err)
	}

	if err := s.SeedSampleQuestion(); err != nil {
		return fmt.Errorf("failed to seed sample question: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

type seedDepartment struct {
	Name string
	Slug string
}

type seedUniversity struct {
	Name        string
	Slug        string
	Departments []seedDepartment
}

var seedUniversities = []seedUniversity{
	// Engineering universities
	{
		Name: "Khulna University of Engineering & Technology",
		Slug: "kuet",
		Departments: []seedDepartment{
			{"Computer Science & Engineering", "cse"},
			{"Electrical & Electronic Engineering", "eee"},
			{"Electronics & Communication Engineering", "ece"},
			{"Civil Engineering", "ce"},
			{"Mechanical Engineering", "me"},
			{"Industrial Engineering & Management", "iem"},
			{"Leather Engineering", "le"},
			{"Textile Engineering", "te"},
			{"Urban & Regional Planning", "urp"},
			{"Building Engineering & Construction Management", "becm"},
			{"Architecture", "arch"},
			{"Mathematics", "math"},
			{"Chemistry", "chem"},
			{"Physics", "phy"},
		},
	},
	{
		Name: "Bangladesh University of Engineering & Technology",
		Slug: "buet",
		Departments: []seedDepartment{
			{"Computer Science & Engineering", "cse"},
			{"Electrical & Electronic Engineering", "eee"},
			{"Civil Engineering", "ce"},
			{"Mechanical Engineering", "me"},
			{"Chemical Engineering", "che"},
			{"Materials & Metallurgical Engineering", "mme"},
			{"Water Resources Engineering", "wre"},
			{"Industrial & Production Engineering", "ipe"},
			{"Naval Architecture & Marine Engineering", "name"},
			{"Architecture", "arch"},
			{"Urban & Regional Planning", "urp"},
		},
	},
	{
		Name: "Chittagong University of Engineering & Technology",
		Slug: "cuet",
		Departments: []seedDepartment{
			{"Computer Science & Engineering", "cse"},
			{"Electrical & Electronic Engineering", "eee"},
			{"Electronics & Telecommunication Engineering", "ete"},
			{"Civil Engineering", "ce"},
			{"Mechanical Engineering", "me"},
			{"Petroleum & Mining Engineering", "pme"},
			{"Architecture", "arch"},
		},
	},
	{
		Name: "Rajshahi University of Engineering & Technology",
		Slug: "ruet",
		Departments: []seedDepartment{
			{"Computer Science & Engineering", "cse"},
			{"Electrical & Electronic Engineering", "eee"},
			{"Electronics & Telecommunication Engineering", "ete"},
			{"Civil Engineering", "ce"},
			{"Mechanical Engineering", "me"},
			{"Industrial & Production Engineering", "ipe"},
			{"Glass & Ceramic Engineering", "gce"},
			{"Urban & Regional Planning", "urp"},
		},
	},
	// General universities
	{
		Name: "University of Dhaka",
		Slug: "du",
		Departments: []seedDepartment{
			{"Computer Science & Engineering", "cse"},
			{"Electrical & Electronic Engineering", "eee"},
			{"Applied Physics & Electronic Engineering", "apee"},
			{"Mathematics", "math"},
			{"Physics", "physics"},
			{"Chemistry", "chemistry"},
			{"Statistics", "stat"},
			{"Theoretical Physics", "tp"},
		},
	},
	{
		Name: "Jahangirnagar University",
		Slug: "ju",
		Departments: []seedDepartment{
			{"Computer Science & Engineering", "cse"},
			{"Mathematics", "math"},
			{"Physics", "physics"},
			{"Chemistry", "chemistry"},
			{"Environmental Sciences", "es"},
			{"Statistics", "stat"},
		},
	},
	// Science & technology universities
	{
		Name: "Shahjalal University of Science & Technology",
		Slug: "sust",
		Departments: []seedDepartment{
			{"Computer Science & Engineering", "cse"},
			{"Electrical & Electronic Engineering", "eee"},
			{"Industrial & Production Engineering", "ipe"},
			{"Mechanical Engineering", "me"},
			{"Civil & Environmental Engineering", "cee"},
			{"Petroleum & Mining Engineering", "pme"},
			{"Chemical Engineering & Polymer Science", "cep"},
			{"Mathematics", "math"},
			{"Physics", "phy"},
			{"Chemistry", "che"},
			{"Statistics", "sta"},
		},
	},
}

// SeedUniversities creates the reference universities and their departments
func (s *Seeder) SeedUniversities() error {
	// Check if universities already exist
	var count int64
	if err := s.db.Model(&model.University{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Universities already exist, skipping...")
		return nil
	}

	for _, su := range seedUniversities {
		university := model.University{Name: su.Name, Slug: su.Slug}
		for _, sd := range su.Departments {
			university.Departments = append(university.Departments, model.Department{Name: sd.Name, Slug: sd.Slug})
		}

		if err := s.db.Create(&university).Error; err != nil {
			return fmt.Errorf("university %s: %w", su.Slug, err)
		}
		log.Printf("✅ Created university: %s (%d departments)\n", university.Name, len(university.Departments))
	}

	return nil
}

var seedCSECourses = []struct {
	Name string
	Code string
}{
	{"Structured Programming Language", "CSE133"},
	{"Data Structures", "CSE135"},
	{"Object Oriented Programming", "CSE213"},
	{"Algorithms", "CSE221"},
	{"Database Management Systems", "CSE311"},
	{"Operating Systems", "CSE313"},
	{"Computer Networks", "CSE315"},
	{"Software Engineering", "CSE317"},
	{"Artificial Intelligence", "CSE411"},
	{"Machine Learning", "CSE413"},
}

// SeedCourses adds sample courses to every CSE department
func (s *Seeder) SeedCourses() error {
	var count int64
	if err := s.db.Model(&model.Course{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Courses already exist, skipping...")
		return nil
	}

	var departments []model.Department
	if err := s.db.Preload("University").Where("slug = ?", "cse").Find(&departments).Error; err != nil {
		return err
	}

	for _, dept := range departments {
		courses := make([]model.Course, 0, len(seedCSECourses))
		for _, sc := range seedCSECourses {
			courses = append(courses, model.Course{
				Name:         sc.Name,
				Code:         sc.Code,
				Slug:         slug.Slugify(sc.Code),
				DepartmentID: dept.ID,
			})
		}
		if err := s.db.Create(&courses).Error; err != nil {
			return err
		}

		universityName := ""
		if dept.University != nil {
			universityName = dept.University.Name
		}
		log.Printf("✅ Added courses for CSE department at %s\n", universityName)
	}

	return nil
}

const sampleQuestionContent = "## Question 1: Binary Search Tree\n\n" +
	"Implement a function to check if a binary tree is a valid binary search tree.\n\n" +
	"```c\nstruct Node {\n    int data;\n    struct Node* left;\n    struct Node* right;\n};\n\n" +
	"bool isBST(struct Node* root) {\n    // Write your code here\n}\n```\n\n" +
	"Explain the time complexity of your solution."

const sampleAnswerContent = "## Solution:\n\n" +
	"We can solve this by checking if each node satisfies the BST property with proper bounds:\n\n" +
	"```c\n#include <limits.h>\n#include <stdbool.h>\n\n" +
	"bool isBSTUtil(struct Node* node, int min, int max) {\n" +
	"    if (node == NULL)\n        return true;\n" +
	"    if (node->data < min || node->data > max)\n        return false;\n" +
	"    return isBSTUtil(node->left, min, node->data - 1) &&\n" +
	"           isBSTUtil(node->right, node->data + 1, max);\n}\n\n" +
	"bool isBST(struct Node* root) {\n    return isBSTUtil(root, INT_MIN, INT_MAX);\n}\n```\n\n" +
	"**Time Complexity:** $O(n)$ where $n$ is the number of nodes in the tree.\n\n" +
	"**Space Complexity:** $O(h)$ where $h$ is the height of the tree, due to the recursive call stack."

// SeedSampleQuestion adds one Data Structures question with a worked answer
func (s *Seeder) SeedSampleQuestion() error {
	var count int64
	if err := s.db.Model(&model.Question{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Questions already exist, skipping...")
		return nil
	}

	var course model.Course
	if err := s.db.Where("code = ?", "CSE135").Order("created_at ASC").First(&course).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Println("⚠️  CSE135 not found, skipping sample question")
			return nil
		}
		return err
	}

	questionNo, marks := 1, 10
	source := "Introduction to Algorithms by Cormen, 3rd Edition, Chapter 12"
	contributor := "Prof. Dr. Mohammad Kaykobad, CSE Department"

	question := model.Question{
		CourseID:   course.ID,
		Year:       2023,
		ExamType:   model.DefaultExamType,
		QuestionNo: &questionNo,
		Marks:      &marks,
		Content:    sampleQuestionContent,
		Answer: &model.Answer{
			Content:     sampleAnswerContent,
			Source:      &source,
			Contributor: &contributor,
		},
	}

	if err := s.db.Create(&question).Error; err != nil {
		return err
	}

	log.Println("✅ Added sample question with answer")
	return nil
}

// RunSeeds seeds all reference data
func RunSeeds(db *gorm.DB) error {
	seeder := NewSeeder(db)
	return seeder.SeedAll()
}
