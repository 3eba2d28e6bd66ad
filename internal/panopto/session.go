package panopto

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/grafov/m3u8"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/logging"
)

// fallbackCDNHost serves deliveries whose iOS stream URL names no host.
const fallbackCDNHost = "s-cloudfront.cdn.ap.panopto.com"

var startTimeRE = regexp.MustCompile(`/Date\((\d+)\)/`)

// session resolves one recording to a downloadable candidate: the viewer
// metadata names the session's HLS tree, the master playlist picks the
// highest-bandwidth variant, and that variant's first segment is the
// progressive file. Sessions whose playlists do not follow this shape are
// skipped, not failed; Panopto serves plenty of exotic deliveries.
func (w *walker) session(ctx context.Context, video Session, dir string) error {
	info, err := w.deliveryInfo(ctx, video.DeliveryID)
	if err != nil {
		return err
	}
	cdn, err := w.cdn(video.IosVideoURL)
	if err != nil {
		return fmt.Errorf("panopto: parse ios video url: %w", err)
	}

	tree := fmt.Sprintf("%s/sessions/%s/%s-%s.hls", cdn, video.SessionID, video.DeliveryID, info.ViewerFileID)

	body, err := w.fetch(ctx, tree+"/master.m3u8")
	if err != nil {
		return err
	}
	playlist, kind, err := m3u8.DecodeFrom(bytes.NewReader(body), true)
	if err != nil {
		w.env.logger.Warn("could not parse master playlist",
			logging.String(logging.FieldTask, video.SessionName),
			logging.Error(err))
		return nil
	}
	if kind != m3u8.MASTER {
		return nil
	}
	best := maxBandwidthVariant(playlist.(*m3u8.MasterPlaylist))
	if best == nil {
		return errors.New("panopto: master playlist has no variants")
	}

	body, err = w.fetch(ctx, tree+"/"+best.URI)
	if err != nil {
		return err
	}
	playlist, kind, err = m3u8.DecodeFrom(bytes.NewReader(body), true)
	if err != nil {
		w.env.logger.Warn("could not parse variant playlist",
			logging.String(logging.FieldTask, video.SessionName),
			logging.Error(err))
		return nil
	}
	if kind != m3u8.MEDIA {
		return nil
	}
	segment := firstSegment(playlist.(*m3u8.MediaPlaylist))
	if segment == nil {
		return errors.New("panopto: variant playlist has no segments")
	}

	// The variant URI's first path component is the directory the segment
	// lives under in the session tree.
	variantDir, _, _ := strings.Cut(best.URI, "/")
	fileURL := fmt.Sprintf("%s/%s/%s", tree, variantDir, segment.URI)

	name := video.SessionName
	if ext := path.Ext(segment.URI); ext != "" {
		name += ext
	}

	updatedAt, err := startTimeRFC3339(video.StartTime)
	if err != nil {
		return err
	}

	w.env.collect(dir, []canvas.File{{
		DisplayName: name,
		URL:         fileURL,
		UpdatedAt:   updatedAt,
	}})
	return nil
}

// deliveryInfo fetches viewer metadata for one delivery. The endpoint
// answers form posts only; responseType=json switches the body from XML.
func (w *walker) deliveryInfo(ctx context.Context, deliveryID string) (DeliveryInfo, error) {
	form := url.Values{
		"deliveryId":                 {deliveryID},
		"invocationId":               {""},
		"isLiveNotes":                {"false"},
		"refreshAuthCookie":          {"true"},
		"isActiveBroadcast":          {"false"},
		"isEditing":                  {"false"},
		"isKollectiveAgentInstalled": {"false"},
		"isEmbed":                    {"false"},
		"responseType":               {"json"},
	}
	req, err := http.NewRequest(http.MethodPost,
		w.base+"/Panopto/Pages/Viewer/DeliveryInfo.aspx", strings.NewReader(form.Encode()))
	if err != nil {
		return DeliveryInfo{}, fmt.Errorf("panopto: build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.gate.Do(ctx, req)
	if err != nil {
		return DeliveryInfo{}, err
	}
	var info DeliveryInfo
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return DeliveryInfo{}, fmt.Errorf("panopto: decode delivery info: %w", err)
	}
	return info, nil
}

// fetch GETs one URL through the session's cookie view.
func (w *walker) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("panopto: build request: %w", err)
	}
	resp, err := w.gate.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return nil, fmt.Errorf("panopto: %s returned status %d", target, resp.Status)
	}
	return resp.Body, nil
}

func maxBandwidthVariant(master *m3u8.MasterPlaylist) *m3u8.Variant {
	var best *m3u8.Variant
	for _, v := range master.Variants {
		if v == nil {
			continue
		}
		if best == nil || v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	return best
}

func firstSegment(media *m3u8.MediaPlaylist) *m3u8.MediaSegment {
	for _, seg := range media.Segments {
		if seg != nil {
			return seg
		}
	}
	return nil
}

// cdnBase derives the delivery CDN from the session's iOS stream URL. An
// unparsable URL fails the session; a parsable one without a host falls
// back to the shared CloudFront distribution.
func cdnBase(iosVideoURL string) (string, error) {
	parsed, err := url.Parse(iosVideoURL)
	if err != nil {
		return "", err
	}
	host := parsed.Hostname()
	if host == "" {
		host = fallbackCDNHost
	}
	return "https://" + host, nil
}

// startTimeRFC3339 converts the service's /Date(ms)/ timestamps into the
// RFC 3339 form the change filter compares against local mtimes.
func startTimeRFC3339(raw string) (string, error) {
	m := startTimeRE.FindStringSubmatch(raw)
	if m == nil {
		return "", fmt.Errorf("panopto: unexpected start time %q", raw)
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("panopto: unexpected start time %q", raw)
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339), nil
}
