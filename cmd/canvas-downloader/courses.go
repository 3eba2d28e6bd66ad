package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/config"
	"github.com/Flynatol/canvas-downloader/internal/gate"
)

// newCanvasClient builds the run's admission gate from the HTTP section of
// the config and binds a client to it. Everything remote flows through the
// returned gate, downloads included.
func newCanvasClient(cfg *config.Config, logger *slog.Logger) (*canvas.Client, *gate.Gate) {
	g := gate.New(gate.Options{
		Limit:   cfg.HTTP.Concurrency,
		Retries: cfg.HTTP.Retries,
		Timeout: time.Duration(cfg.HTTP.RequestTimeout) * time.Second,
		Logger:  logger,
	})
	return canvas.NewClient(cfg.Canvas.BaseURL, cfg.Canvas.Token, g, logger), g
}

// fetchCourses lists the token owner's favorite courses. Favorites the user
// is no longer enrolled in come back without an enrollments key and are
// dropped here.
func fetchCourses(ctx context.Context, client *canvas.Client) ([]canvas.Course, error) {
	pages, err := client.GetAll(ctx, client.URL("/users/self/favorites/courses"))
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	var courses []canvas.Course
	for _, page := range pages {
		batch, err := canvas.DecodeList[canvas.Course](page.Body)
		if err != nil {
			return nil, fmt.Errorf("decode courses: %w", err)
		}
		for _, course := range batch {
			if course.Enrolled() {
				courses = append(courses, course)
			}
		}
	}
	return courses, nil
}

func fetchUser(ctx context.Context, client *canvas.Client) (canvas.User, error) {
	var user canvas.User
	if err := client.GetJSON(ctx, client.URL("/users/self"), &user); err != nil {
		return canvas.User{}, fmt.Errorf("look up token owner: %w", err)
	}
	return user, nil
}

// selectCourses keeps the courses named by the filters. Explicit course IDs
// win over term IDs; with both empty nothing is selected.
func selectCourses(courses []canvas.Course, termIDs, courseIDs []int64) []canvas.Course {
	var kept []canvas.Course
	for _, course := range courses {
		switch {
		case len(courseIDs) > 0:
			if slices.Contains(courseIDs, course.ID) {
				kept = append(kept, course)
			}
		case slices.Contains(termIDs, course.EnrollmentTermID):
			kept = append(kept, course)
		}
	}
	return kept
}

// buildTermRows groups course codes by enrollment term, newest term first.
// Canvas allocates term IDs in ascending order, so the sort stands in for a
// start-date the favorites listing does not carry.
func buildTermRows(courses []canvas.Course) [][]string {
	grouped := make(map[int64][]string)
	for _, course := range courses {
		grouped[course.EnrollmentTermID] = append(grouped[course.EnrollmentTermID], course.CourseCode)
	}

	terms := make([]int64, 0, len(grouped))
	for term := range grouped {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i] > terms[j] })

	rows := make([][]string, 0, len(terms))
	for _, term := range terms {
		codes := grouped[term]
		sort.Strings(codes)
		rows = append(rows, []string{fmt.Sprintf("%d", term), strings.Join(codes, ", ")})
	}
	return rows
}

func renderTermTable(courses []canvas.Course) string {
	return renderTable(
		[]string{"Term ID", "Courses"},
		buildTermRows(courses),
		[]columnAlignment{alignRight, alignLeft},
	)
}

// courseDirName maps a course code onto its mirror directory. Only slashes
// are replaced; course codes are otherwise used verbatim so existing mirrors
// keep their names.
func courseDirName(code string) string {
	return strings.ReplaceAll(code, "/", "_")
}
