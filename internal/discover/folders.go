package discover

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/fileutil"
	"github.com/Flynatol/canvas-downloader/internal/logging"
	"github.com/Flynatol/canvas-downloader/internal/textutil"
)

// folders walks one level of a course file tree and spawns tasks for each
// child folder's files and subfolders. The root folder ("course files") has
// no parent and maps onto dir itself instead of adding a directory level.
func (e *Env) folders(ctx context.Context, url, dir string) error {
	pages, err := e.Client.GetAll(ctx, url)
	if err != nil {
		return err
	}

	for _, pg := range pages {
		folders, err := canvas.DecodeList[canvas.Folder](pg.Body)
		if err != nil {
			// Courses without a files tab answer with an unauthorized
			// envelope; that is normal, everything else is worth a line.
			if !errors.Is(err, canvas.ErrUnauthorized) {
				e.logger.Warn("could not list folders",
					logging.String(logging.FieldURL, pg.URL),
					logging.Error(err))
			}
			continue
		}

		for _, folder := range folders {
			path := dir
			if folder.ParentFolderID != nil {
				path = filepath.Join(dir, textutil.SanitizeFolderName(folder.Name))
			}
			if err := fileutil.EnsureDir(path); err != nil {
				e.logger.Warn("could not create folder",
					logging.String(logging.FieldPath, path),
					logging.Error(err))
				continue
			}

			e.Sched.Go("files "+folder.Name, func(ctx context.Context) error {
				return e.files(ctx, folder.FilesURL, path)
			})
			e.Sched.Go("folders "+folder.Name, func(ctx context.Context) error {
				return e.folders(ctx, folder.FoldersURL, path)
			})
		}
	}
	return nil
}
