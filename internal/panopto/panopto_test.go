package panopto

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/crawl"
	"github.com/Flynatol/canvas-downloader/internal/gate"
	"github.com/Flynatol/canvas-downloader/internal/logging"
	"github.com/Flynatol/canvas-downloader/internal/mirror"
)

type fixture struct {
	env     *Env
	acc     *mirror.Accumulator
	tracker *crawl.Tracker
	srv     *httptest.Server
}

func newFixture(t *testing.T, mux *http.ServeMux) *fixture {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	g := gate.New(gate.Options{Limit: 4})
	client := canvas.NewClient(srv.URL, "tok", g, nil)
	tracker := crawl.NewTracker()
	sched := crawl.NewScheduler(context.Background(), tracker, logging.NewNop())
	acc := mirror.NewAccumulator()
	env := NewEnv(client, sched, mirror.NewFilter(false, nil), acc, 128, nil)

	return &fixture{env: env, acc: acc, tracker: tracker, srv: srv}
}

func (f *fixture) run(t *testing.T, name string, fn func(ctx context.Context) error) {
	t.Helper()
	release := f.tracker.Hold()
	f.env.Sched.Go(name, fn)
	release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := f.tracker.Wait(ctx); err != nil {
		t.Fatalf("crawl did not drain: %v", err)
	}
}

func TestLaunchReplaysFormAndReadsRedirect(t *testing.T) {
	mux := http.NewServeMux()

	var base string
	mux.HandleFunc("/login/session_token", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("session_token auth = %q", got)
		}
		if !strings.Contains(r.URL.Query().Get("return_to"), "/courses/9/external_tools/128") {
			t.Errorf("return_to = %q", r.URL.Query().Get("return_to"))
		}
		fmt.Fprintf(w, `{"session_url": "%s/tool", "requires_terms_acceptance": false}`, base)
	})
	mux.HandleFunc("/tool", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "canvas_session", Value: "abc"})
		http.Redirect(w, r, base+"/tool-page", http.StatusFound)
	})
	mux.HandleFunc("/tool-page", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
			<form data-tool-id="mediaweb.ap.panopto.com" action="%s/lti/launch" method="POST">
				<input type="hidden" name="lti_message_type" value="basic-lti-launch-request">
				<input type="hidden" name="oauth_signature" value="sig123">
				<input type="hidden" name="unnamed_button">
			</form></body></html>`, base)
	})
	mux.HandleFunc("/lti/launch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("launch method = %s", r.Method)
		}
		if got := r.Header.Get("Origin"); got != base {
			t.Errorf("Origin = %q, want %q", got, base)
		}
		if got := r.Header.Get("Referer"); got != base+"/" {
			t.Errorf("Referer = %q, want %q", got, base+"/")
		}
		if _, err := r.Cookie("canvas_session"); err != nil {
			t.Error("launch POST lost the session cookie")
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse launch form: %v", err)
		}
		if got := r.PostForm.Get("oauth_signature"); got != "sig123" {
			t.Errorf("oauth_signature = %q", got)
		}
		if got := r.PostForm.Get("lti_message_type"); got != "basic-lti-launch-request" {
			t.Errorf("lti_message_type = %q", got)
		}
		w.Header().Set("Location",
			"https://uni.cloud.panopto.eu/Panopto/Pages/Sessions/List.aspx?folderID=root-42&embedded=1")
		w.WriteHeader(http.StatusFound)
	})

	fix := newFixture(t, mux)
	base = fix.srv.URL

	w, rootID, err := fix.env.launch(context.Background(), 9)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if rootID != "root-42" {
		t.Fatalf("root folder = %q, want root-42", rootID)
	}
	if w.base != "https://uni.cloud.panopto.eu" {
		t.Fatalf("walker base = %q", w.base)
	}
}

func TestLaunchRejectsToolPageWithoutForm(t *testing.T) {
	mux := http.NewServeMux()
	var base string
	mux.HandleFunc("/login/session_token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"session_url": "%s/tool"}`, base)
	})
	mux.HandleFunc("/tool", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><form action="/other">not the tool</form></body></html>`)
	})

	fix := newFixture(t, mux)
	base = fix.srv.URL

	if _, _, err := fix.env.launch(context.Background(), 9); err == nil || !strings.Contains(err.Error(), "launch form") {
		t.Fatalf("launch err = %v, want missing-form error", err)
	}
}

func TestFolderWalkPagesSessionsAndRecursesSubfoldersOnce(t *testing.T) {
	dir := t.TempDir()

	pageBody := func(results, subfolders string) string {
		return fmt.Sprintf(`{"d": {"TotalNumber": 2, "Results": [%s], "Subfolders": [%s]}}`, results, subfolders)
	}
	session1 := `{"DeliveryID": "del-1", "FolderID": "root", "SessionID": "sess-1",
		"SessionName": "Lecture 1", "StartTime": "/Date(1704067200000)/", "IosVideoUrl": "https://cdn.example/a.mp4"}`
	session2 := strings.ReplaceAll(session1, "1", "2")
	subfolder := `{"ID": "sub-1", "Name": "Extra: Lectures"}`

	rootPages := []string{
		pageBody(session1, subfolder),
		pageBody(session2, subfolder),
		pageBody("", subfolder),
	}
	subPages := []string{pageBody("", "")}

	var mu sync.Mutex
	infoCalls := map[string]int{}
	sessionPages := map[string][]int{}

	mux := http.NewServeMux()
	mux.HandleFunc("/Panopto/Services/Data.svc/GetFolderInfo", func(w http.ResponseWriter, r *http.Request) {
		var q folderQuery
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			t.Errorf("decode folder query: %v", err)
		}
		mu.Lock()
		infoCalls[q.FolderID]++
		mu.Unlock()
		fmt.Fprintf(w, `{"d": {"Name": "folder %s"}}`, q.FolderID)
	})
	mux.HandleFunc("/Panopto/Services/Data.svc/GetSessions", func(w http.ResponseWriter, r *http.Request) {
		var q sessionQuery
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			t.Errorf("decode session query: %v", err)
		}
		if q.QueryParameters.MaxResults != 100 || !q.QueryParameters.IncludeArchived {
			t.Errorf("unexpected query parameters: %+v", q.QueryParameters)
		}
		mu.Lock()
		sessionPages[q.QueryParameters.FolderID] = append(sessionPages[q.QueryParameters.FolderID], q.QueryParameters.Page)
		mu.Unlock()

		pages := rootPages
		if q.QueryParameters.FolderID == "sub-1" {
			pages = subPages
		}
		fmt.Fprint(w, pages[q.QueryParameters.Page])
	})
	// Session tasks fail here; the walk must not care.
	mux.HandleFunc("/Panopto/Pages/Viewer/DeliveryInfo.aspx", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no viewer", http.StatusNotFound)
	})

	fix := newFixture(t, mux)
	w := newWalker(fix.env, fix.env.Client.Gate(), fix.srv.URL)

	fix.run(t, "videos", func(ctx context.Context) error {
		return w.folder(ctx, "root", dir)
	})

	mu.Lock()
	defer mu.Unlock()
	if infoCalls["root"] != 1 || infoCalls["sub-1"] != 1 {
		t.Fatalf("GetFolderInfo calls = %v", infoCalls)
	}
	if got := sessionPages["root"]; len(got) != 3 {
		t.Fatalf("root pages fetched = %v, want 3", got)
	}
	if got := sessionPages["sub-1"]; len(got) != 1 || got[0] != 0 {
		t.Fatalf("subfolder pages fetched = %v, want [0]", got)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "sessions.json"))
	if err != nil {
		t.Fatalf("sessions.json missing: %v", err)
	}
	if want := strings.Join(rootPages, ""); string(raw) != want {
		t.Fatalf("sessions.json = %q, want raw pages concatenated", raw)
	}
	if _, err := os.Stat(filepath.Join(dir, "folder.json")); err != nil {
		t.Fatalf("folder.json missing: %v", err)
	}

	subdir := filepath.Join(dir, "Extra Lectures")
	if _, err := os.Stat(filepath.Join(subdir, "sessions.json")); err != nil {
		t.Fatalf("subfolder sessions.json missing: %v", err)
	}
}

func TestSessionResolvesHighestBandwidthFile(t *testing.T) {
	dir := t.TempDir()
	mux := http.NewServeMux()

	mux.HandleFunc("/Panopto/Pages/Viewer/DeliveryInfo.aspx", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse delivery form: %v", err)
		}
		if got := r.PostForm.Get("deliveryId"); got != "del-1" {
			t.Errorf("deliveryId = %q", got)
		}
		if got := r.PostForm.Get("responseType"); got != "json" {
			t.Errorf("responseType = %q", got)
		}
		fmt.Fprint(w, `{"SessionId": "sess-1", "ViewerFileId": "vf-9"}`)
	})
	mux.HandleFunc("/sessions/sess-1/del-1-vf-9.hls/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `#EXTM3U
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=1000000,RESOLUTION=640x360
360/index.m3u8
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=4000000,RESOLUTION=1920x1080
1080/index.m3u8
`)
	})
	mux.HandleFunc("/sessions/sess-1/del-1-vf-9.hls/1080/index.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-MEDIA-SEQUENCE:0
#EXT-X-TARGETDURATION:3600
#EXTINF:3600.000,
file.mp4
#EXT-X-ENDLIST
`)
	})

	fix := newFixture(t, mux)
	w := newWalker(fix.env, fix.env.Client.Gate(), fix.srv.URL)
	w.cdn = func(string) (string, error) { return fix.srv.URL, nil }

	video := Session{
		DeliveryID:  "del-1",
		SessionID:   "sess-1",
		SessionName: "Lecture 1",
		StartTime:   "/Date(1704067200000)/",
		IosVideoURL: "https://cdn.example/a.mp4",
	}
	fix.run(t, "video", func(ctx context.Context) error {
		return w.session(ctx, video, dir)
	})

	files := fix.acc.Seal()
	if len(files) != 1 {
		t.Fatalf("candidates = %+v, want one", files)
	}
	got := files[0]
	if got.DisplayName != "Lecture 1.mp4" {
		t.Errorf("display name = %q", got.DisplayName)
	}
	if want := fix.srv.URL + "/sessions/sess-1/del-1-vf-9.hls/1080/file.mp4"; got.URL != want {
		t.Errorf("url = %q, want %q", got.URL, want)
	}
	if got.UpdatedAt != "2024-01-01T00:00:00Z" {
		t.Errorf("updated at = %q", got.UpdatedAt)
	}
	if got.Path != filepath.Join(dir, "Lecture 1.mp4") {
		t.Errorf("path = %q", got.Path)
	}
}

func TestSessionSkipsMediaOnlyDelivery(t *testing.T) {
	dir := t.TempDir()
	mux := http.NewServeMux()

	mux.HandleFunc("/Panopto/Pages/Viewer/DeliveryInfo.aspx", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"SessionId": "sess-1", "ViewerFileId": "vf-9"}`)
	})
	mux.HandleFunc("/sessions/sess-1/del-1-vf-9.hls/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-MEDIA-SEQUENCE:0
#EXT-X-TARGETDURATION:10
#EXTINF:10.000,
only-segment.ts
#EXT-X-ENDLIST
`)
	})

	fix := newFixture(t, mux)
	w := newWalker(fix.env, fix.env.Client.Gate(), fix.srv.URL)
	w.cdn = func(string) (string, error) { return fix.srv.URL, nil }

	video := Session{DeliveryID: "del-1", SessionID: "sess-1", SessionName: "Live", StartTime: "/Date(0)/"}
	fix.run(t, "video", func(ctx context.Context) error {
		return w.session(ctx, video, dir)
	})

	if files := fix.acc.Seal(); len(files) != 0 {
		t.Fatalf("candidates = %+v, want none for a media-only delivery", files)
	}
}

func TestStartTimeRFC3339(t *testing.T) {
	got, err := startTimeRFC3339("/Date(1704067200000)/")
	if err != nil {
		t.Fatalf("startTimeRFC3339: %v", err)
	}
	if got != "2024-01-01T00:00:00Z" {
		t.Fatalf("start time = %q", got)
	}

	if _, err := startTimeRFC3339("2024-01-01"); err == nil {
		t.Fatal("plain dates are not the service's format and must be rejected")
	}
}

func TestCDNBaseFallsBackWhenHostMissing(t *testing.T) {
	base, err := cdnBase("relative/path.mp4")
	if err != nil {
		t.Fatalf("cdnBase: %v", err)
	}
	if base != "https://"+fallbackCDNHost {
		t.Fatalf("cdn base = %q", base)
	}

	base, err = cdnBase("https://uni-cdn.panopto.eu/sessions/a.mp4")
	if err != nil {
		t.Fatalf("cdnBase: %v", err)
	}
	if base != "https://uni-cdn.panopto.eu" {
		t.Fatalf("cdn base = %q", base)
	}

	if _, err := cdnBase("https://%zz"); err == nil {
		t.Fatal("unparsable URLs must fail the session")
	}
}
