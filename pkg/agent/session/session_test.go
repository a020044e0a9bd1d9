package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeTagsWithAppName_WithTags(t *testing.T) {
	tags := map[string]string{
		"env":      "staging",
		"region":   "us-west-1",
		"__name__": "reserved",
	}

	assert.Equal(t,
		"my.awesome.app.cpu{env=staging,region=us-west-1}",
		mergeTagsWithAppName("my.awesome.app.cpu", tags))
}

func TestMergeTagsWithAppName_WithoutTags(t *testing.T) {
	assert.Equal(t,
		"my.awesome.app.cpu",
		mergeTagsWithAppName("my.awesome.app.cpu", nil))
	assert.Equal(t,
		"my.awesome.app.cpu",
		mergeTagsWithAppName("my.awesome.app.cpu", map[string]string{}))
}

func TestMergeTagsWithAppName_SortsPairs(t *testing.T) {
	tags := map[string]string{
		"zone":    "b",
		"app":     "checkout",
		"cluster": "east",
	}

	assert.Equal(t,
		"svc{app=checkout,cluster=east,zone=b}",
		mergeTagsWithAppName("svc", tags))
}

func TestMergeTagsWithAppName_OnlyReservedTag(t *testing.T) {
	tags := map[string]string{"__name__": "x"}

	assert.Equal(t, "svc", mergeTagsWithAppName("svc", tags),
		"all-reserved tag set should merge like an empty one")
}
