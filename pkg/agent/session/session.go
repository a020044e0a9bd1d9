package session

import (
	"sort"
	"strings"
	"time"
)

// Session is one closed profiling window: the rendered report plus
// the metadata frozen at the window boundary.
type Session struct {
	// ID uniquely identifies the session in logs.
	ID string

	// StartTime and Until bound the window.
	StartTime time.Time
	Until     time.Time

	// Tags is the tag snapshot taken when the window closed.
	Tags map[string]string

	// Report is the collapsed-format profile for the window.
	Report []byte

	// SampleRate, Units and SpyName describe how the report was
	// collected.
	SampleRate uint32
	Units      string
	SpyName    string
}

// mergeTagsWithAppName folds a tag snapshot into the application
// name: "app{k1=v1,k2=v2}" with pairs sorted, or just the name when
// no tags are set. The reserved metric-name key is dropped.
func mergeTagsWithAppName(appName string, tags map[string]string) string {
	pairs := make([]string, 0, len(tags))
	for k, v := range tags {
		if k == reservedTagKey {
			continue
		}
		pairs = append(pairs, k+"="+v)
	}
	if len(pairs) == 0 {
		return appName
	}
	sort.Strings(pairs)
	return appName + "{" + strings.Join(pairs, ",") + "}"
}
