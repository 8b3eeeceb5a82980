package inmemdb

import (
	"context"

	"github.com/ssriya/grader/core/gradebook"
	"github.com/ssriya/grader/core/grading"
)

type gradebookRepository struct {
	db *DB
}

func NewGradebookRepository(db *DB) gradebook.Repository {
	return &gradebookRepository{db: db}
}

func indexOf[T any](items []T, fn func(T) bool) int {
	for i, item := range items {
		if fn(item) {
			return i
		}
	}
	return -1
}

// filter returns a new slice holding the items matching fn.
func filter[T any](items []T, fn func(T) bool) []T {
	res := make([]T, 0)
	for _, item := range items {
		if fn(item) {
			res = append(res, item)
		}
	}
	return res
}

// Classes

func (repo *gradebookRepository) CreateClass(_ context.Context, cls gradebook.Class) (gradebook.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.classes = append(repo.db.classes, cls)
	return cls, nil
}

func (repo *gradebookRepository) GetClass(_ context.Context, id string) (gradebook.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if i := indexOf(repo.db.classes, func(c gradebook.Class) bool { return c.ID == id }); i >= 0 {
		return repo.db.classes[i], nil
	}
	return gradebook.Class{}, gradebook.ErrClassNotFound
}

func (repo *gradebookRepository) QueryClassesByTeacher(_ context.Context, teacherID string) ([]gradebook.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return filter(repo.db.classes, func(c gradebook.Class) bool { return c.TeacherID == teacherID }), nil
}

func (repo *gradebookRepository) QueryClassesByStudent(_ context.Context, studentID string) ([]gradebook.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrolled := make(map[string]bool)
	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID {
			enrolled[enr.ClassID] = true
		}
	}
	return filter(repo.db.classes, func(c gradebook.Class) bool { return enrolled[c.ID] }), nil
}

func (repo *gradebookRepository) UpdateClass(_ context.Context, cls gradebook.Class) (gradebook.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	i := indexOf(repo.db.classes, func(c gradebook.Class) bool { return c.ID == cls.ID })
	if i < 0 {
		return gradebook.Class{}, gradebook.ErrClassNotFound
	}
	repo.db.classes[i].Name = cls.Name
	repo.db.classes[i].Section = cls.Section
	return repo.db.classes[i], nil
}

func (repo *gradebookRepository) DeleteClass(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if indexOf(repo.db.classes, func(c gradebook.Class) bool { return c.ID == id }) < 0 {
		return gradebook.ErrClassNotFound
	}
	assignmentIDs := make(map[string]bool)
	for _, asg := range repo.db.assignments {
		if asg.ClassID == id {
			assignmentIDs[asg.ID] = true
		}
	}

	repo.db.classes = filter(repo.db.classes, func(c gradebook.Class) bool { return c.ID != id })
	repo.db.enrollments = filter(repo.db.enrollments, func(e grading.Enrollment) bool { return e.ClassID != id })
	repo.db.categories = filter(repo.db.categories, func(c grading.Category) bool { return c.ClassID != id })
	repo.db.assignments = filter(repo.db.assignments, func(a grading.Assignment) bool { return a.ClassID != id })
	repo.db.grades = filter(repo.db.grades, func(g grading.Grade) bool { return !assignmentIDs[g.AssignmentID] })
	repo.db.attendance = filter(repo.db.attendance, func(a gradebook.Attendance) bool { return a.ClassID != id })
	repo.db.materials = filter(repo.db.materials, func(m gradebook.Material) bool { return m.ClassID != id })
	return nil
}

// Enrollments

func (repo *gradebookRepository) CreateEnrollment(_ context.Context, enr grading.Enrollment) (grading.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	exists := indexOf(repo.db.enrollments, func(e grading.Enrollment) bool {
		return e.ClassID == enr.ClassID && e.StudentID == enr.StudentID
	})
	if exists >= 0 {
		return grading.Enrollment{}, gradebook.ErrAlreadyEnrolled
	}
	repo.db.enrollments = append(repo.db.enrollments, enr)
	return enr, nil
}

func (repo *gradebookRepository) GetEnrollment(_ context.Context, classID, studentID string) (grading.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	i := indexOf(repo.db.enrollments, func(e grading.Enrollment) bool {
		return e.ClassID == classID && e.StudentID == studentID
	})
	if i < 0 {
		return grading.Enrollment{}, gradebook.ErrNotEnrolled
	}
	return repo.db.enrollments[i], nil
}

func (repo *gradebookRepository) QueryEnrollments(_ context.Context, classID string) ([]grading.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return filter(repo.db.enrollments, func(e grading.Enrollment) bool { return e.ClassID == classID }), nil
}

func (repo *gradebookRepository) DeleteEnrollment(_ context.Context, classID, studentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n := len(repo.db.enrollments)
	repo.db.enrollments = filter(repo.db.enrollments, func(e grading.Enrollment) bool {
		return !(e.ClassID == classID && e.StudentID == studentID)
	})
	if len(repo.db.enrollments) == n {
		return gradebook.ErrNotEnrolled
	}
	return nil
}

// Categories

func (repo *gradebookRepository) CreateCategory(_ context.Context, cat grading.Category) (grading.Category, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.categories = append(repo.db.categories, cat)
	return cat, nil
}

func (repo *gradebookRepository) GetCategory(_ context.Context, id string) (grading.Category, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if i := indexOf(repo.db.categories, func(c grading.Category) bool { return c.ID == id }); i >= 0 {
		return repo.db.categories[i], nil
	}
	return grading.Category{}, gradebook.ErrCategoryNotFound
}

func (repo *gradebookRepository) QueryCategories(_ context.Context, classID string) ([]grading.Category, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return filter(repo.db.categories, func(c grading.Category) bool { return c.ClassID == classID }), nil
}

func (repo *gradebookRepository) UpdateCategory(_ context.Context, cat grading.Category) (grading.Category, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	i := indexOf(repo.db.categories, func(c grading.Category) bool { return c.ID == cat.ID })
	if i < 0 {
		return grading.Category{}, gradebook.ErrCategoryNotFound
	}
	repo.db.categories[i].Name = cat.Name
	repo.db.categories[i].Weight = cat.Weight
	return repo.db.categories[i], nil
}

func (repo *gradebookRepository) DeleteCategory(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n := len(repo.db.categories)
	repo.db.categories = filter(repo.db.categories, func(c grading.Category) bool { return c.ID != id })
	if len(repo.db.categories) == n {
		return gradebook.ErrCategoryNotFound
	}
	return nil
}

func (repo *gradebookRepository) CountAssignmentsByCategory(_ context.Context, categoryID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(filter(repo.db.assignments, func(a grading.Assignment) bool { return a.CategoryID == categoryID })), nil
}

// Assignments

func (repo *gradebookRepository) CreateAssignment(_ context.Context, asg grading.Assignment) (grading.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.assignments = append(repo.db.assignments, asg)
	return asg, nil
}

func (repo *gradebookRepository) GetAssignment(_ context.Context, id string) (grading.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if i := indexOf(repo.db.assignments, func(a grading.Assignment) bool { return a.ID == id }); i >= 0 {
		return repo.db.assignments[i], nil
	}
	return grading.Assignment{}, gradebook.ErrAssignmentNotFound
}

func (repo *gradebookRepository) QueryAssignments(_ context.Context, classID string) ([]grading.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return filter(repo.db.assignments, func(a grading.Assignment) bool { return a.ClassID == classID }), nil
}

func (repo *gradebookRepository) DeleteAssignment(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n := len(repo.db.assignments)
	repo.db.assignments = filter(repo.db.assignments, func(a grading.Assignment) bool { return a.ID != id })
	if len(repo.db.assignments) == n {
		return gradebook.ErrAssignmentNotFound
	}
	repo.db.grades = filter(repo.db.grades, func(g grading.Grade) bool { return g.AssignmentID != id })
	return nil
}

// Grades

func (repo *gradebookRepository) UpsertGrade(_ context.Context, grd grading.Grade) (grading.Grade, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	i := indexOf(repo.db.grades, func(g grading.Grade) bool {
		return g.AssignmentID == grd.AssignmentID && g.StudentID == grd.StudentID
	})
	if i >= 0 {
		repo.db.grades[i].Score = grd.Score
		return repo.db.grades[i], nil
	}
	repo.db.grades = append(repo.db.grades, grd)
	return grd, nil
}

func (repo *gradebookRepository) QueryGrades(_ context.Context, classID string) ([]grading.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.classGrades(classID), nil
}

func (repo *gradebookRepository) classGrades(classID string) []grading.Grade {
	assignmentIDs := make(map[string]bool)
	for _, asg := range repo.db.assignments {
		if asg.ClassID == classID {
			assignmentIDs[asg.ID] = true
		}
	}
	return filter(repo.db.grades, func(g grading.Grade) bool { return assignmentIDs[g.AssignmentID] })
}

// Attendance

func (repo *gradebookRepository) UpsertAttendance(_ context.Context, att gradebook.Attendance) (gradebook.Attendance, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	i := indexOf(repo.db.attendance, func(a gradebook.Attendance) bool {
		return a.ClassID == att.ClassID && a.StudentID == att.StudentID && a.Date == att.Date
	})
	if i >= 0 {
		repo.db.attendance[i].Status = att.Status
		return repo.db.attendance[i], nil
	}
	repo.db.attendance = append(repo.db.attendance, att)
	return att, nil
}

func (repo *gradebookRepository) QueryAttendance(_ context.Context, classID, date string) ([]gradebook.Attendance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return filter(repo.db.attendance, func(a gradebook.Attendance) bool {
		return a.ClassID == classID && (date == "" || a.Date == date)
	}), nil
}

// Materials

func (repo *gradebookRepository) CreateMaterial(_ context.Context, mat gradebook.Material) (gradebook.Material, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.materials = append(repo.db.materials, mat)
	return mat, nil
}

func (repo *gradebookRepository) GetMaterial(_ context.Context, id string) (gradebook.Material, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if i := indexOf(repo.db.materials, func(m gradebook.Material) bool { return m.ID == id }); i >= 0 {
		return repo.db.materials[i], nil
	}
	return gradebook.Material{}, gradebook.ErrMaterialNotFound
}

func (repo *gradebookRepository) QueryMaterials(_ context.Context, classID string) ([]gradebook.Material, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return filter(repo.db.materials, func(m gradebook.Material) bool { return m.ClassID == classID }), nil
}

func (repo *gradebookRepository) DeleteMaterial(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n := len(repo.db.materials)
	repo.db.materials = filter(repo.db.materials, func(m gradebook.Material) bool { return m.ID != id })
	if len(repo.db.materials) == n {
		return gradebook.ErrMaterialNotFound
	}
	return nil
}

// LoadSnapshot copies a class's records under one read lock.
func (repo *gradebookRepository) LoadSnapshot(_ context.Context, classID string) (grading.Snapshot, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return grading.Snapshot{
		Categories:  filter(repo.db.categories, func(c grading.Category) bool { return c.ClassID == classID }),
		Assignments: filter(repo.db.assignments, func(a grading.Assignment) bool { return a.ClassID == classID }),
		Grades:      repo.classGrades(classID),
		Enrollments: filter(repo.db.enrollments, func(e grading.Enrollment) bool { return e.ClassID == classID }),
	}, nil
}
