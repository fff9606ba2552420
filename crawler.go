package folio

import "strings"

var crawlerMarkers = []string{
	"bot", "crawler", "spider", "crawl", "slurp", "scrape",
	"yandex", "baidu", "facebookexternalhit", "headlesschrome",
	"curl/", "wget/", "python-requests", "go-http-client",
}

// isCrawler reports whether ua looks like an automated client. Crawlers do
// not count as post or project views.
func isCrawler(ua string) bool {
	if ua == "" {
		return true
	}
	ua = strings.ToLower(ua)
	for _, m := range crawlerMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}
