package fusion

import "testing"

func TestExtractPrefecture(t *testing.T) {
	cases := map[string]string{
		"東京都台東区花川戸":  "東京都",
		"北海道札幌市中央区": "北海道",
		"大阪府大阪市":     "大阪府",
		"no prefecture here": "",
	}
	for in, want := range cases {
		if got := extractPrefecture(in); got != want {
			t.Errorf("extractPrefecture(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolvePrefectureCenter_UsesExplicitPrefectureFirst(t *testing.T) {
	c, ok := resolvePrefectureCenter("東京都", "", "", "")
	if !ok {
		t.Fatal("expected a match")
	}
	if c.Lat == 0 || c.Lng == 0 {
		t.Error("expected non-zero centroid")
	}
}

func TestResolvePrefectureCenter_FallsBackThroughAddressVenueThenName(t *testing.T) {
	c, ok := resolvePrefectureCenter("", "", "", "隅田川花火大会(東京都台東区)")
	if !ok {
		t.Fatal("expected a fallback match from event name")
	}
	want := prefectureCenters["東京都"]
	if c != want {
		t.Errorf("expected tokyo centroid, got %+v", c)
	}
}

func TestResolvePrefectureCenter_UnrecognizedReturnsFalse(t *testing.T) {
	_, ok := resolvePrefectureCenter("", "", "", "")
	if ok {
		t.Error("expected no match for entirely empty input")
	}
}
