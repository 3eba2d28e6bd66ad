package discover

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/fileutil"
	"github.com/Flynatol/canvas-downloader/internal/logging"
	"github.com/Flynatol/canvas-downloader/internal/textutil"
)

// modules mirrors the module listing and spawns one task per module section
// to fetch its items.
func (e *Env) modules(ctx context.Context, courseID int64, dir string) error {
	pages, err := e.Client.GetAll(ctx, e.Client.URL("/courses/%d/modules", courseID))
	if err != nil {
		return err
	}
	if err := dumpPages(filepath.Join(dir, "modules.json"), pages); err != nil {
		return err
	}

	for _, pg := range pages {
		sections, err := canvas.DecodeList[canvas.ModuleSection](pg.Body)
		if err != nil {
			e.logger.Warn("could not list modules",
				logging.String(logging.FieldURL, pg.URL),
				logging.Error(err))
			continue
		}

		for _, section := range sections {
			sdir := filepath.Join(dir, fmt.Sprintf("%d_%s", section.ID, textutil.SanitizeFolderName(section.Name)))
			if err := fileutil.EnsureDir(sdir); err != nil {
				e.logger.Warn("could not create module directory",
					logging.String(logging.FieldPath, sdir),
					logging.Error(err))
				continue
			}

			e.Sched.Go("module items "+section.Name, func(ctx context.Context) error {
				return e.moduleItems(ctx, section.ItemsURL, sdir)
			})
		}
	}
	return nil
}

// moduleItems fetches one module's items and mirrors the ones that resolve
// to content: Page items become rendered page directories, File items become
// download candidates. Headers and external links only appear in items.json.
func (e *Env) moduleItems(ctx context.Context, url, dir string) error {
	resp, err := e.Client.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := dumpBody(filepath.Join(dir, "items.json"), resp.Body); err != nil {
		return err
	}

	items, err := canvas.DecodeList[canvas.ModuleItem](resp.Body)
	if err != nil {
		e.logger.Warn("could not list module items",
			logging.String(logging.FieldURL, url),
			logging.Error(err))
		return nil
	}

	for _, item := range items {
		idir := filepath.Join(dir, fmt.Sprintf("%d_%s", item.ID, textutil.SanitizeFolderName(item.Title)))
		if err := fileutil.EnsureDir(idir); err != nil {
			e.logger.Warn("could not create item directory",
				logging.String(logging.FieldPath, idir),
				logging.Error(err))
			continue
		}

		switch item.Type {
		case "Page":
			e.Sched.Go("page "+item.Title, func(ctx context.Context) error {
				return e.pageBody(ctx, item.URL, item.Title, idir)
			})
		case "File":
			file, err := e.fileByURL(ctx, item.URL)
			if err != nil {
				e.logger.Warn("could not resolve module file",
					logging.String(logging.FieldURL, item.URL),
					logging.Error(err))
				continue
			}
			e.collect(idir, []canvas.File{file})
		}
	}
	return nil
}

// fileByURL resolves a file API URL to its record.
func (e *Env) fileByURL(ctx context.Context, url string) (canvas.File, error) {
	var file canvas.File
	if err := e.Client.GetJSON(ctx, url, &file); err != nil {
		return canvas.File{}, err
	}
	return file, nil
}
