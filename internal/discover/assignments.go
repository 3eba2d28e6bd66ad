package discover

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/fileutil"
	"github.com/Flynatol/canvas-downloader/internal/logging"
	"github.com/Flynatol/canvas-downloader/internal/textutil"
)

const assignmentIncludes = "?include[]=submission&include[]=assignment_visibility&include[]=all_dates&include[]=overrides&include[]=observed_users&include[]=can_edit&include[]=score_statistics"

// assignments mirrors the assignment listing: the raw pages land in
// assignments.json, and every assignment gets a directory holding the token
// owner's submission and whatever files its description links to.
func (e *Env) assignments(ctx context.Context, courseID int64, dir string) error {
	pages, err := e.Client.GetAll(ctx, e.Client.URL("/courses/%d/assignments%s", courseID, assignmentIncludes))
	if err != nil {
		return err
	}
	if err := dumpPages(filepath.Join(dir, "assignments.json"), pages); err != nil {
		return err
	}

	for _, pg := range pages {
		assignments, err := canvas.DecodeList[canvas.Assignment](pg.Body)
		if err != nil {
			e.logger.Warn("could not list assignments",
				logging.String(logging.FieldURL, pg.URL),
				logging.Error(err))
			continue
		}

		for _, assignment := range assignments {
			adir := filepath.Join(dir, textutil.SanitizeFolderName(assignment.Name))
			if err := fileutil.EnsureDir(adir); err != nil {
				e.logger.Warn("could not create assignment directory",
					logging.String(logging.FieldPath, adir),
					logging.Error(err))
				continue
			}

			e.Sched.Go("submission "+assignment.Name, func(ctx context.Context) error {
				return e.submission(ctx, courseID, assignment.ID, adir)
			})
			e.Sched.Go("assignment html "+assignment.Name, func(ctx context.Context) error {
				return e.html(ctx, assignment.Description, adir)
			})
		}
	}
	return nil
}

// submission fetches the token owner's submission for one assignment, dumps
// it, and queues its attachments.
func (e *Env) submission(ctx context.Context, courseID, assignmentID int64, dir string) error {
	url := e.Client.URL("/courses/%d/assignments/%d/submissions/%d", courseID, assignmentID, e.User.ID)
	resp, err := e.Client.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := dumpBody(filepath.Join(dir, "submission.json"), resp.Body); err != nil {
		return err
	}

	var submission canvas.Submission
	if err := json.Unmarshal(resp.Body, &submission); err != nil {
		e.logger.Warn("could not decode submission",
			logging.String(logging.FieldURL, url),
			logging.Error(err))
		return nil
	}
	e.collect(dir, submission.Attachments)
	return nil
}
