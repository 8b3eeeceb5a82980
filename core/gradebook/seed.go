package gradebook

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ssriya/grader/core"
	"github.com/ssriya/grader/core/user"
)

// DemoPassword is the password of every demo account.
const DemoPassword = "demo"

type (
	demoUser struct {
		key, name, email, role string
	}

	demoCategory struct {
		key, name string
		weight    float64
	}

	demoAssignment struct {
		category, title, dueDate string
		points                   float64
		scores                   map[string]float64 // by demo user key
	}

	demoMaterial struct {
		title, description, url, uploadDate string
	}

	demoClass struct {
		name, section string
		students      []string
		categories    []demoCategory
		assignments   []demoAssignment
		materials     []demoMaterial
	}
)

var (
	demoUsers = []demoUser{
		{"teacher", "Ms. Johnson", "teacher@demo", user.RoleTeacher},
		{"alice", "Alice Smith", "student@demo", user.RoleStudent},
		{"bob", "Bob Wilson", "bob@demo", user.RoleStudent},
		{"carol", "Carol Davis", "carol@demo", user.RoleStudent},
		{"david", "David Brown", "david@demo", user.RoleStudent},
	}

	demoClasses = []demoClass{
		{
			name:     "Algebra I",
			section:  "Period 1",
			students: []string{"alice", "bob"},
			categories: []demoCategory{
				{"hw", "Homework", 0.3},
				{"tests", "Tests", 0.5},
				{"part", "Participation", 0.2},
			},
			assignments: []demoAssignment{
				{"hw", "HW 1", "2025-01-15", 10, map[string]float64{"alice": 9, "bob": 8}},
				{"tests", "Test 1", "2025-01-20", 100, map[string]float64{"alice": 92, "bob": 85}},
			},
			materials: []demoMaterial{
				{"Chapter 1 Notes", "Introduction to Linear Equations", "#", "2025-01-10"},
			},
		},
		{
			name:     "Biology",
			section:  "Period 3",
			students: []string{"alice", "carol", "david"},
			categories: []demoCategory{
				{"labs", "Labs", 0.4},
				{"exams", "Exams", 0.6},
			},
			assignments: []demoAssignment{
				{"labs", "Lab 1", "2025-01-18", 50, map[string]float64{"alice": 45, "carol": 48}},
			},
			materials: []demoMaterial{
				{"Cell Structure Guide", "Comprehensive guide to cell biology", "#", "2025-01-12"},
			},
		},
	}
)

// Seed creates the demo teacher, students and classes. Existing demo accounts are reused;
// classes are always created anew.
func (svc *Service) Seed(ctx context.Context) ([]Class, error) {
	users := make(map[string]user.User, len(demoUsers))
	for _, du := range demoUsers {
		usr, err := svc.students.GetByEmail(ctx, du.email)
		if err != nil {
			if errors.Cause(err) != user.ErrNotFound {
				return nil, errors.Wrap(err, "finding demo user")
			}
			usr = user.User{Name: du.name, Email: du.email, Roles: []string{du.role}}
			if err = usr.SetPassword(DemoPassword); err != nil {
				return nil, errors.Wrap(err, "hashing password")
			}
			if usr, err = svc.students.Save(ctx, usr); err != nil {
				return nil, errors.Wrap(err, "creating demo user")
			}
		}
		users[du.key] = usr
	}

	classes := make([]Class, 0, len(demoClasses))
	for _, dc := range demoClasses {
		cls, err := svc.seedClass(ctx, users["teacher"].ID, dc, users)
		if err != nil {
			return nil, errors.Wrapf(err, "seeding class %q", dc.name)
		}
		classes = append(classes, cls)
	}
	return classes, nil
}

func (svc *Service) seedClass(ctx context.Context, teacherID string, dc demoClass, users map[string]user.User) (Class, error) {
	cls, err := svc.CreateClass(ctx, teacherID, NewClass{Name: dc.name, Section: dc.section})
	if err != nil {
		return Class{}, err
	}
	for _, key := range dc.students {
		if _, err = svc.Enroll(ctx, cls.ID, Enroll{StudentEmail: users[key].Email}); err != nil {
			return Class{}, err
		}
	}

	categories := make(map[string]string, len(dc.categories))
	for _, c := range dc.categories {
		cat, err := svc.AddCategory(ctx, cls.ID, NewCategory{Name: c.name, Weight: c.weight})
		if err != nil {
			return Class{}, err
		}
		categories[c.key] = cat.ID
	}

	for _, a := range dc.assignments {
		asg, err := svc.AddAssignment(ctx, cls.ID, NewAssignment{
			CategoryID: categories[a.category],
			Title:      a.title,
			Points:     a.points,
			DueDate:    a.dueDate,
		})
		if err != nil {
			return Class{}, err
		}
		for _, key := range dc.students {
			score, ok := a.scores[key]
			if !ok {
				continue
			}
			_, err = svc.SetGrade(ctx, cls.ID, SetGrade{
				AssignmentID: asg.ID,
				StudentID:    users[key].ID,
				Score:        null.Float64From(score),
			})
			if err != nil {
				return Class{}, err
			}
		}
	}

	for _, m := range dc.materials {
		uploaded, err := time.Parse(core.DateLayout, m.uploadDate)
		if err != nil {
			return Class{}, err
		}
		_, err = svc.repo.CreateMaterial(ctx, Material{
			ID:          core.NewID("sm"),
			ClassID:     cls.ID,
			Title:       m.title,
			Description: m.description,
			URL:         m.url,
			UploadDate:  uploaded,
		})
		if err != nil {
			return Class{}, err
		}
	}
	return cls, nil
}

