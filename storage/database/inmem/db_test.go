package inmemdb

import (
	"testing"

	"github.com/ssriya/grader/core/gradebook"
	"github.com/ssriya/grader/core/user"
	testutil "github.com/ssriya/grader/tests"
)

func TestRepositories(t *testing.T) {
	testutil.RunRepositoryTests(t, func(t *testing.T) (gradebook.Repository, user.Repository) {
		db := Open()
		return NewGradebookRepository(db), NewUserRepository(db)
	})
}
