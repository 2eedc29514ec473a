package utils

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// TrackingToken derives the opaque token embedded in tracking URLs.
func TrackingToken(messageID string) string {
	hash := sha256.Sum256([]byte(uuid.New().String() + messageID))
	return base64.URLEncoding.EncodeToString(hash[:])[:20]
}

// OpenPixelURL builds the open-tracking pixel URL for a message.
func OpenPixelURL(baseURL, messageID string) string {
	return fmt.Sprintf("%s/track/open/%s/%s", baseURL, url.PathEscape(messageID), TrackingToken(messageID))
}

// ClickTrackURL wraps a link so the click is recorded before redirecting.
func ClickTrackURL(baseURL, messageID, originalURL string) string {
	return fmt.Sprintf("%s/track/click/%s/%s?url=%s",
		baseURL, url.PathEscape(messageID), TrackingToken(messageID), url.QueryEscape(originalURL))
}

// InjectTracking appends the open pixel and rewrites anchor hrefs to go
// through the click redirect. Naive string scan; campaign templates are
// authored in-house, not arbitrary HTML.
func InjectTracking(htmlContent, baseURL, messageID string) string {
	if baseURL == "" {
		return htmlContent
	}

	html := rewriteLinks(htmlContent, baseURL, messageID)
	pixel := fmt.Sprintf(`<img src="%s" alt="" width="1" height="1" style="display:none">`,
		OpenPixelURL(baseURL, messageID))
	return html + pixel
}

// TransparentPixel returns the 1x1 GIF served by the open-tracking
// endpoint.
func TransparentPixel() []byte {
	return []byte{
		0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
		0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x21,
		0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00,
		0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
		0x01, 0x00, 0x3b,
	}
}

func rewriteLinks(html, baseURL, messageID string) string {
	const startTag = `<a href="`
	offset := 0
	for {
		startIdx := strings.Index(html[offset:], startTag)
		if startIdx == -1 {
			break
		}
		startIdx += offset + len(startTag)

		endIdx := strings.Index(html[startIdx:], `"`)
		if endIdx == -1 {
			break
		}
		endIdx += startIdx

		tracked := ClickTrackURL(baseURL, messageID, html[startIdx:endIdx])
		html = html[:startIdx] + tracked + html[endIdx:]
		offset = startIdx + len(tracked)
	}
	return html
}
