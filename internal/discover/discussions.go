package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/fileutil"
	"github.com/Flynatol/canvas-downloader/internal/logging"
	"github.com/Flynatol/canvas-downloader/internal/textutil"
)

// discussions mirrors discussion topics, or announcements when the flag is
// set; Canvas serves both through the same endpoint. Every topic gets an
// id-prefixed directory with its attachments, its linked files, and its full
// entry tree.
func (e *Env) discussions(ctx context.Context, courseID int64, announcements bool, dir string) error {
	url := e.Client.URL("/courses/%d/discussion_topics", courseID)
	if announcements {
		url += "?only_announcements=true"
	}
	pages, err := e.Client.GetAll(ctx, url)
	if err != nil {
		return err
	}
	if err := dumpPages(filepath.Join(dir, "discussions.json"), pages); err != nil {
		return err
	}

	for _, pg := range pages {
		discussions, err := canvas.DecodeList[canvas.Discussion](pg.Body)
		if err != nil {
			e.logger.Warn("could not list discussions",
				logging.String(logging.FieldURL, pg.URL),
				logging.Error(err))
			continue
		}

		for _, discussion := range discussions {
			ddir := filepath.Join(dir, fmt.Sprintf("%d_%s", discussion.ID, textutil.SanitizeFolderName(discussion.Title)))
			if err := fileutil.EnsureDir(ddir); err != nil {
				e.logger.Warn("could not create discussion directory",
					logging.String(logging.FieldPath, ddir),
					logging.Error(err))
				continue
			}

			// Attachment names are id-prefixed: different topics reuse
			// names like "slides.pdf" and these all land in sibling dirs.
			e.collect(ddir, prefixAttachments(discussion.Attachments))

			e.Sched.Go("discussion html", func(ctx context.Context) error {
				return e.html(ctx, discussion.Message, ddir)
			})
			e.Sched.Go("discussion view", func(ctx context.Context) error {
				return e.discussionView(ctx, courseID, discussion.ID, ddir)
			})
		}
	}
	return nil
}

// discussionView mirrors the full entry tree of one topic: every entry's
// message is scraped for file links and every entry attachment is queued.
func (e *Env) discussionView(ctx context.Context, courseID, topicID int64, dir string) error {
	url := e.Client.URL("/courses/%d/discussion_topics/%d/view", courseID, topicID)
	resp, err := e.Client.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := dumpBody(filepath.Join(dir, "discussion.json"), resp.Body); err != nil {
		return err
	}

	var view canvas.DiscussionView
	if err := json.Unmarshal(resp.Body, &view); err != nil {
		e.logger.Warn("could not decode discussion view",
			logging.String(logging.FieldURL, url),
			logging.Error(err))
		return nil
	}

	var attachments []canvas.File
	for _, entry := range view.View {
		if entry.Message != nil {
			e.Sched.Go("discussion entry html", func(ctx context.Context) error {
				return e.html(ctx, *entry.Message, dir)
			})
		}
		attachments = append(attachments, entry.Attachments...)
		if entry.Attachment != nil {
			attachments = append(attachments, *entry.Attachment)
		}
	}
	e.collect(dir, prefixAttachments(attachments))
	return nil
}

func prefixAttachments(files []canvas.File) []canvas.File {
	prefixed := make([]canvas.File, len(files))
	for i, f := range files {
		f.DisplayName = fmt.Sprintf("%d_%s", f.ID, f.DisplayName)
		prefixed[i] = f
	}
	return prefixed
}
