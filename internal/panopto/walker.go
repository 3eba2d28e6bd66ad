package panopto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Flynatol/canvas-downloader/internal/fileutil"
	"github.com/Flynatol/canvas-downloader/internal/gate"
	"github.com/Flynatol/canvas-downloader/internal/logging"
	"github.com/Flynatol/canvas-downloader/internal/textutil"
)

// walker traverses one course's Panopto folder tree with the session cookies
// the launch established.
type walker struct {
	env  *Env
	gate *gate.Gate // cookie-jar view of the run's admission gate
	base string     // https://{panopto host}

	// cdn resolves the delivery host for a session; replaced in tests.
	cdn func(iosVideoURL string) (string, error)
}

func newWalker(env *Env, g *gate.Gate, base string) *walker {
	return &walker{env: env, gate: g, base: base, cdn: cdnBase}
}

// folder dumps one folder's metadata and pages through its sessions. Every
// raw page body is appended to sessions.json. The service repeats the
// subfolder list on every page, so only page zero recurses into them; a
// folder whose first page has no sessions ends the walk before its
// subfolders are considered.
func (w *walker) folder(ctx context.Context, folderID, dir string) error {
	info, err := w.data(ctx, "GetFolderInfo", folderQuery{FolderID: folderID})
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "folder.json"), info, 0o644); err != nil {
		return fmt.Errorf("panopto: write folder.json: %w", err)
	}

	sessionsPath := filepath.Join(dir, "sessions.json")
	out, err := os.Create(sessionsPath)
	if err != nil {
		return fmt.Errorf("panopto: create %s: %w", sessionsPath, err)
	}
	defer out.Close()

	for page := 0; ; page++ {
		body, err := w.data(ctx, "GetSessions", newSessionQuery(folderID, page))
		if err != nil {
			return err
		}
		if _, err := out.Write(body); err != nil {
			return fmt.Errorf("panopto: write %s: %w", sessionsPath, err)
		}

		var wrapper envelope
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return fmt.Errorf("panopto: decode sessions envelope: %w", err)
		}
		var list SessionList
		if err := json.Unmarshal(wrapper.D, &list); err != nil {
			return fmt.Errorf("panopto: decode session list: %w", err)
		}

		if len(list.Results) == 0 {
			return out.Close()
		}

		for _, video := range list.Results {
			w.env.Sched.Go("video "+video.SessionName, func(ctx context.Context) error {
				return w.session(ctx, video, dir)
			})
		}

		if page == 0 {
			for _, sub := range list.Subfolders {
				subdir := filepath.Join(dir, textutil.SanitizeFolderName(sub.Name))
				if err := fileutil.EnsureDir(subdir); err != nil {
					w.env.logger.Warn("could not create video folder directory",
						logging.String(logging.FieldPath, subdir),
						logging.Error(err))
					continue
				}
				w.env.Sched.Go("video folder "+sub.Name, func(ctx context.Context) error {
					return w.folder(ctx, sub.ID, subdir)
				})
			}
		}
	}
}

// data posts a JSON request to one of the host's Data.svc methods and
// returns the raw response body.
func (w *walker) data(ctx context.Context, method string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("panopto: encode %s request: %w", method, err)
	}
	req, err := http.NewRequest(http.MethodPost,
		fmt.Sprintf("%s/Panopto/Services/Data.svc/%s", w.base, method), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("panopto: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.gate.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return nil, fmt.Errorf("panopto: %s returned status %d", method, resp.Status)
	}
	return resp.Body, nil
}
