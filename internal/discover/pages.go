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

// pages mirrors the wiki page listing and spawns one task per page to fetch
// its rendered body.
func (e *Env) pages(ctx context.Context, courseID int64, dir string) error {
	pageList, err := e.Client.GetAll(ctx, e.Client.URL("/courses/%d/pages", courseID))
	if err != nil {
		return err
	}
	if err := dumpPages(filepath.Join(dir, "pages.json"), pageList); err != nil {
		return err
	}

	for _, pg := range pageList {
		pages, err := canvas.DecodeList[canvas.Page](pg.Body)
		if err != nil {
			e.logger.Warn("could not list pages",
				logging.String(logging.FieldURL, pg.URL),
				logging.Error(err))
			continue
		}

		for _, page := range pages {
			pdir := filepath.Join(dir, textutil.SanitizeFolderName(page.URL))
			if err := fileutil.EnsureDir(pdir); err != nil {
				e.logger.Warn("could not create page directory",
					logging.String(logging.FieldPath, pdir),
					logging.Error(err))
				continue
			}

			bodyURL := e.Client.URL("/courses/%d/pages/%s", courseID, page.URL)
			e.Sched.Go("page "+page.URL, func(ctx context.Context) error {
				return e.pageBody(ctx, bodyURL, page.URL, pdir)
			})
		}
	}
	return nil
}

// pageBody fetches one rendered page, dumps the raw record, writes a
// standalone HTML copy, and scrapes the body for linked course files.
func (e *Env) pageBody(ctx context.Context, url, title, dir string) error {
	resp, err := e.Client.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := dumpBody(filepath.Join(dir, textutil.SanitizeFileName(title)+".json"), resp.Body); err != nil {
		return err
	}

	var body canvas.PageBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		e.logger.Warn("could not decode page body",
			logging.String(logging.FieldURL, url),
			logging.Error(err))
		return nil
	}

	html := fmt.Sprintf("<html><head><title>%s</title></head><body>%s</body></html>", body.Title, body.Body)
	htmlPath := filepath.Join(dir, textutil.SanitizeFileName(body.URL)+".html")
	if err := dumpBody(htmlPath, []byte(html)); err != nil {
		return err
	}

	e.Sched.Go("page html "+title, func(ctx context.Context) error {
		return e.html(ctx, html, dir)
	})
	return nil
}
