package discover

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/logging"
)

var (
	courseFileLinkRE  = regexp.MustCompile(`/courses/[0-9]+/files/[0-9]+`)
	dispositionNameRE = regexp.MustCompile(`filename="(.*)"`)
	lastSegmentRE     = regexp.MustCompile(`/([^/]+)$`)
)

// html scrapes rendered course HTML for hosted files. Anchors pointing at
// course files are resolved through the file API; embedded images are probed
// with a HEAD request instead, because their file endpoints routinely deny
// access while the image URL itself works.
func (e *Env) html(ctx context.Context, content, dir string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("discover: parse html: %w", err)
	}

	base := e.Client.BaseURL()
	var batch []canvas.File

	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || !strings.HasPrefix(href, base) {
			return
		}
		parsed, err := url.Parse(href)
		if err != nil || !courseFileLinkRE.MatchString(parsed.Path) {
			return
		}
		apiURL := strings.TrimSuffix(base+"/api/v1"+parsed.Path, "/download")
		file, err := e.fileByURL(ctx, apiURL)
		if err != nil {
			e.logger.Warn("could not resolve linked file",
				logging.String(logging.FieldURL, apiURL),
				logging.Error(err))
			return
		}
		batch = append(batch, file)
	})

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || !strings.HasPrefix(src, base) {
			return
		}
		if strings.Contains(src, "equation_images") {
			return
		}
		file, err := e.imageByURL(ctx, src)
		if err != nil {
			e.logger.Warn("could not probe embedded image",
				logging.String(logging.FieldURL, src),
				logging.Error(err))
			return
		}
		batch = append(batch, file)
	})

	e.collect(dir, batch)
	return nil
}

// imageByURL names an embedded image from its response headers. The image
// keeps its source URL as the download URL; only the name and timestamp come
// from the probe.
func (e *Env) imageByURL(ctx context.Context, link string) (canvas.File, error) {
	resp, err := e.Client.Head(ctx, link)
	if err != nil {
		return canvas.File{}, err
	}

	name := "unknown"
	if m := dispositionNameRE.FindStringSubmatch(resp.Header.Get("Content-Disposition")); m != nil {
		name = m[1]
	} else if m := lastSegmentRE.FindStringSubmatch(link); m != nil {
		name = m[1]
	}

	updatedAt := time.Now().Format(time.RFC3339)
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if ts, err := http.ParseTime(lm); err == nil {
			updatedAt = ts.Local().Format(time.RFC3339)
		}
	}

	return canvas.File{
		DisplayName: name,
		URL:         link,
		UpdatedAt:   updatedAt,
	}, nil
}
