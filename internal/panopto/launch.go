package panopto

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
)

// launchFormSelector matches the LTI form Canvas renders for the Panopto
// external tool.
const launchFormSelector = `form[data-tool-id="mediaweb.ap.panopto.com"]`

// launch performs the LTI handshake for one course: trade the API token for
// a browser session, load the external tool page, and replay the launch form
// it contains against Panopto. The returned walker holds the session cookies;
// rootID is the course's top-level video folder.
func (e *Env) launch(ctx context.Context, courseID int64) (w *walker, rootID string, err error) {
	base := e.Client.BaseURL()

	var session canvas.Session
	tokenURL := fmt.Sprintf("%s/login/session_token?return_to=%s/courses/%d/external_tools/%d",
		base, base, courseID, e.ToolID)
	if err := e.Client.GetJSON(ctx, tokenURL, &session); err != nil {
		return nil, "", err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, "", err
	}
	// browse follows the login redirects so the jar collects cookies from
	// every hop. poster stops at the first response: the launch redirect's
	// Location is the only place the Panopto host and folder appear.
	browse := e.Client.Gate().WithClient(&http.Client{Jar: jar})
	poster := e.Client.Gate().WithClient(&http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	})

	req, err := http.NewRequest(http.MethodGet, session.SessionURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("panopto: build session request: %w", err)
	}
	resp, err := browse.Do(ctx, req)
	if err != nil {
		return nil, "", err
	}

	action, form, err := scrapeLaunchForm(resp.Body)
	if err != nil {
		return nil, "", err
	}

	post, err := http.NewRequest(http.MethodPost, action, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", fmt.Errorf("panopto: build launch request: %w", err)
	}
	post.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	post.Header.Set("Origin", base)
	post.Header.Set("Referer", base+"/")
	launched, err := poster.Do(ctx, post)
	if err != nil {
		return nil, "", err
	}

	location := launched.Header.Get("Location")
	if location == "" {
		return nil, "", errors.New("panopto: launch response has no location")
	}
	target, err := url.Parse(location)
	if err != nil {
		return nil, "", fmt.Errorf("panopto: parse launch redirect: %w", err)
	}
	folderID := target.Query().Get("folderID")
	if folderID == "" {
		return nil, "", fmt.Errorf("panopto: launch redirect %q carries no folderID", location)
	}
	host := target.Hostname()
	if host == "" {
		return nil, "", fmt.Errorf("panopto: launch redirect %q carries no host", location)
	}

	return newWalker(e, browse, "https://"+host), folderID, nil
}

// scrapeLaunchForm pulls the action URL and the hidden input set out of the
// rendered tool page.
func scrapeLaunchForm(page []byte) (string, url.Values, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", nil, fmt.Errorf("panopto: parse tool page: %w", err)
	}
	form := doc.Find(launchFormSelector).First()
	if form.Length() == 0 {
		return "", nil, errors.New("panopto: tool page has no launch form")
	}
	action, ok := form.Attr("action")
	if !ok {
		return "", nil, errors.New("panopto: launch form has no action")
	}
	values := url.Values{}
	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok {
			return
		}
		values.Set(name, input.AttrOr("value", ""))
	})
	return action, values, nil
}
