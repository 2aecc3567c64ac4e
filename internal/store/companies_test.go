package store

import (
	"reflect"
	"testing"

	"github.com/coldtrail/ypcrawl/internal/model"
)

func TestUnionPreservingOrder(t *testing.T) {
	got := unionPreservingOrder([]string{"Plumbers", "HVAC"}, []string{"HVAC", "Water Heaters"})
	want := []string{"Plumbers", "HVAC", "Water Heaters"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestUnionPreservingOrderHandlesEmptySides(t *testing.T) {
	if got := unionPreservingOrder(nil, []string{"a"}); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("got %v, want [a]", got)
	}
	if got := unionPreservingOrder([]string{"a"}, nil); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("got %v, want [a]", got)
	}
}

func TestMergeParseMetadataNewerScalarsWin(t *testing.T) {
	old := model.ParseMetadata{
		ProfileURL:    "https://example.com/old-profile",
		CategoryTags:  []string{"Plumbers"},
		FilterScore:   60,
		FilterReason:  "accepted",
		SourcePageURL: "https://example.com/old-search",
	}
	updated := model.ParseMetadata{
		ProfileURL:    "https://example.com/new-profile",
		CategoryTags:  []string{"HVAC"},
		IsSponsored:   true,
		FilterScore:   75,
		FilterReason:  "accepted",
		SourcePageURL: "https://example.com/new-search",
	}

	merged := mergeParseMetadata(old, updated)

	if merged.ProfileURL != updated.ProfileURL {
		t.Errorf("ProfileURL = %q, want newer value %q", merged.ProfileURL, updated.ProfileURL)
	}
	if merged.SourcePageURL != updated.SourcePageURL {
		t.Errorf("SourcePageURL = %q, want newer value %q", merged.SourcePageURL, updated.SourcePageURL)
	}
	if merged.FilterScore != 75 {
		t.Errorf("FilterScore = %d, want 75", merged.FilterScore)
	}
	if !merged.IsSponsored {
		t.Error("IsSponsored should take the newer value")
	}
	want := []string{"Plumbers", "HVAC"}
	if !reflect.DeepEqual(merged.CategoryTags, want) {
		t.Errorf("CategoryTags = %v, want %v", merged.CategoryTags, want)
	}
}

func TestMergeParseMetadataKeepsOldProfileURLWhenNewIsEmpty(t *testing.T) {
	old := model.ParseMetadata{ProfileURL: "https://example.com/profile"}
	updated := model.ParseMetadata{}
	merged := mergeParseMetadata(old, updated)
	if merged.ProfileURL != old.ProfileURL {
		t.Errorf("ProfileURL = %q, want preserved old value %q", merged.ProfileURL, old.ProfileURL)
	}
}
