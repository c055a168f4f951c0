package lms

import (
	"context"
	"fmt"
	"net/url"

	"github.com/edulock/sebdash/pkg/util"
)

// Course is one row of the instructor's active course list.
type Course struct {
	ID            int64  `json:"id" validate:"required"`
	Name          string `json:"name"`
	CourseCode    string `json:"course_code"`
	TotalStudents int    `json:"total_students"`
}

// Quiz is a classic quiz. The lockdown requirement shows up either as the
// explicit browser flag or as a mandatory access code.
type Quiz struct {
	ID                     int64  `json:"id" validate:"required"`
	Title                  string `json:"title"`
	AccessCode             string `json:"access_code"`
	RequireLockdownBrowser bool   `json:"require_lockdown_browser"`
}

// RequiresLockdown reports whether the quiz demands a proctored browser.
func (q Quiz) RequiresLockdown() bool {
	return q.RequireLockdownBrowser || q.AccessCode != ""
}

// NewQuiz is an assessment from the parallel New Quizzes subsystem, which
// uses string identifiers and nests the proctoring flags under settings.
type NewQuiz struct {
	ID       string          `json:"id" validate:"required"`
	Title    string          `json:"title"`
	Settings NewQuizSettings `json:"quiz_settings"`
}

type NewQuizSettings struct {
	RequireStudentAccessCode bool   `json:"require_student_access_code"`
	StudentAccessCode        string `json:"student_access_code"`
}

// RequiresLockdown reports whether the new quiz demands a proctored browser.
func (q NewQuiz) RequiresLockdown() bool {
	return q.Settings.RequireStudentAccessCode || q.Settings.StudentAccessCode != ""
}

// ListActiveCourses returns every course the token's owner teaches,
// following pagination to the end. Student totals are included because the
// dashboard needs them; a course with zero students is still a valid row.
func (c *Client) ListActiveCourses(ctx context.Context, accessToken string) ([]Course, error) {
	query := url.Values{}
	query.Set("enrollment_type", "teacher")
	query.Set("enrollment_state", "active")
	query.Add("include[]", "total_students")
	query.Set("per_page", "100")

	var courses []Course
	pageURL := c.apiURL("/api/v1/courses", query)
	for pageURL != "" {
		body, header, err := c.get(ctx, pageURL, accessToken)
		if err != nil {
			return nil, err
		}

		page, err := util.DecodeValidSlice[Course](body)
		if err != nil {
			return nil, fmt.Errorf("course list: %w", err)
		}
		courses = append(courses, page...)

		pageURL = nextPageURL(header.Get("Link"))
	}

	return courses, nil
}

// ListQuizzes returns the classic quizzes of one course.
func (c *Client) ListQuizzes(ctx context.Context, accessToken string, courseID int64) ([]Quiz, error) {
	query := url.Values{}
	query.Set("per_page", "100")

	var quizzes []Quiz
	pageURL := c.apiURL(fmt.Sprintf("/api/v1/courses/%d/quizzes", courseID), query)
	for pageURL != "" {
		body, header, err := c.get(ctx, pageURL, accessToken)
		if err != nil {
			return nil, err
		}

		page, err := util.DecodeValidSlice[Quiz](body)
		if err != nil {
			return nil, fmt.Errorf("quiz list for course %d: %w", courseID, err)
		}
		quizzes = append(quizzes, page...)

		pageURL = nextPageURL(header.Get("Link"))
	}

	return quizzes, nil
}

// ListNewQuizzes returns the New Quizzes assessments of one course.
func (c *Client) ListNewQuizzes(ctx context.Context, accessToken string, courseID int64) ([]NewQuiz, error) {
	query := url.Values{}
	query.Set("per_page", "100")

	var quizzes []NewQuiz
	pageURL := c.apiURL(fmt.Sprintf("/api/quiz/v1/courses/%d/quizzes", courseID), query)
	for pageURL != "" {
		body, header, err := c.get(ctx, pageURL, accessToken)
		if err != nil {
			return nil, err
		}

		page, err := util.DecodeValidSlice[NewQuiz](body)
		if err != nil {
			return nil, fmt.Errorf("new quiz list for course %d: %w", courseID, err)
		}
		quizzes = append(quizzes, page...)

		pageURL = nextPageURL(header.Get("Link"))
	}

	return quizzes, nil
}
