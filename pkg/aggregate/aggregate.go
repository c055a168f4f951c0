// Package aggregate fans out quiz fetches across an instructor's courses
// and derives a per-course Safe Exam Browser status. The contract is best
// effort: one course's failure never aborts the batch.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/edulock/sebdash/pkg/lms"
)

// Status is the derived SEB state of one course. It is computed fresh on
// every request and never persisted.
type Status string

const (
	// StatusActive means at least one quiz requires the lockdown browser.
	StatusActive Status = "active"
	// StatusSetup means quizzes exist but none requires lockdown yet.
	StatusSetup Status = "setup"
	// StatusNoSEB means no quizzes were observed at all.
	StatusNoSEB Status = "no_seb"
)

// DashboardCourse is one derived dashboard row.
type DashboardCourse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	StudentCount int    `json:"studentCount"`
	QuizCount    int    `json:"quizCount"`
	Status       Status `json:"status"`
}

// DeriveStatus is the pure, total status rule over the quiz observations of
// one course. Any lockdown-required quiz wins over mere quiz presence.
func DeriveStatus(quizCount, lockdownCount int) Status {
	switch {
	case lockdownCount > 0:
		return StatusActive
	case quizCount > 0:
		return StatusSetup
	default:
		return StatusNoSEB
	}
}

type Aggregator struct {
	client *lms.Client
}

func New(client *lms.Client) *Aggregator {
	return &Aggregator{client: client}
}

// ListCoursesWithQuizStatus fetches the instructor's active courses and,
// per course, both quiz subsystems concurrently. A course list failure is
// fatal because there is nothing sensible to degrade to; everything below
// the course list degrades per course and per source. Sibling fetches
// complete in arbitrary order.
func (a *Aggregator) ListCoursesWithQuizStatus(ctx context.Context, domain, accessToken string) ([]DashboardCourse, error) {
	client := a.client.ForDomain(domain)

	courses, err := client.ListActiveCourses(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch course list: %w", err)
	}

	results := make([]*DashboardCourse, len(courses))
	var wg sync.WaitGroup
	wg.Add(len(courses))

	for i, course := range courses {
		go func(idx int, course lms.Course) {
			defer wg.Done()
			results[idx] = a.summarizeCourse(ctx, client, accessToken, course)
		}(i, course)
	}

	wg.Wait()

	dashboard := make([]DashboardCourse, 0, len(courses))
	for _, result := range results {
		if result != nil {
			dashboard = append(dashboard, *result)
		}
	}

	return dashboard, nil
}

type quizObservation struct {
	total    int
	lockdown int
	err      error
}

// summarizeCourse queries both quiz sources concurrently. A failing source
// contributes an empty set and is only logged; it never suppresses the
// other source or the course row. Returns nil only when the whole request
// was cancelled, in which case the row is dropped rather than fabricated.
func (a *Aggregator) summarizeCourse(ctx context.Context, client *lms.Client, accessToken string, course lms.Course) *DashboardCourse {
	var classic, modern quizObservation
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		quizzes, err := client.ListQuizzes(ctx, accessToken, course.ID)
		if err != nil {
			classic.err = err
			return
		}
		classic.total = len(quizzes)
		for _, quiz := range quizzes {
			if quiz.RequiresLockdown() {
				classic.lockdown++
			}
		}
	}()

	go func() {
		defer wg.Done()
		quizzes, err := client.ListNewQuizzes(ctx, accessToken, course.ID)
		if err != nil {
			modern.err = err
			return
		}
		modern.total = len(quizzes)
		for _, quiz := range quizzes {
			if quiz.RequiresLockdown() {
				modern.lockdown++
			}
		}
	}()

	wg.Wait()

	if ctx.Err() != nil {
		return nil
	}

	if classic.err != nil {
		slog.Warn("quiz fetch degraded to empty set",
			"course_id", course.ID, "source", "quizzes", "error", classic.err)
	}
	if modern.err != nil {
		slog.Warn("quiz fetch degraded to empty set",
			"course_id", course.ID, "source", "new_quizzes", "error", modern.err)
	}

	total := classic.total + modern.total
	lockdown := classic.lockdown + modern.lockdown

	return &DashboardCourse{
		ID:           course.ID,
		Name:         course.Name,
		Code:         course.CourseCode,
		StudentCount: course.TotalStudents,
		QuizCount:    total,
		Status:       DeriveStatus(total, lockdown),
	}
}
