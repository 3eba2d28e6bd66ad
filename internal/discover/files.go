package discover

import (
	"context"
	"errors"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/logging"
)

// files lists one folder's files and feeds them through the change filter.
func (e *Env) files(ctx context.Context, url, dir string) error {
	pages, err := e.Client.GetAll(ctx, url)
	if err != nil {
		return err
	}

	for _, pg := range pages {
		files, err := canvas.DecodeList[canvas.File](pg.Body)
		if err != nil {
			if !errors.Is(err, canvas.ErrUnauthorized) {
				e.logger.Warn("could not list files",
					logging.String(logging.FieldURL, pg.URL),
					logging.Error(err))
			}
			continue
		}
		e.collect(dir, files)
	}
	return nil
}
