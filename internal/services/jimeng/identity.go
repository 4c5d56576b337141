package jimeng

import (
	"math/rand"
	"strings"
)

// Cookie keys the web frontend stores its device identifier under, in
// lookup order.
var webIDCookieKeys = []string{"_tea_web_id", "web_id", "_v2_spipe_web_id"}

// webIDFromCookie extracts the device identifier from a raw cookie header
// value. Returns "" when none of the known keys are present.
func webIDFromCookie(cookie string) string {
	for _, key := range webIDCookieKeys {
		for _, item := range strings.Split(cookie, ";") {
			item = strings.TrimSpace(item)
			if value, ok := strings.CutPrefix(item, key+"="); ok && value != "" {
				return value
			}
		}
	}
	return ""
}

// randomWebID generates the 19-digit fallback identifier used when the
// cookie carries no device id.
func randomWebID() string {
	var b strings.Builder
	b.Grow(19)
	for i := 0; i < 19; i++ {
		b.WriteByte(byte('0' + rand.Intn(10)))
	}
	return b.String()
}
