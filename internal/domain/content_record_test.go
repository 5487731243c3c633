package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestContentRecord_MarshalJSON_FlattensPolishBundle(t *testing.T) {
	r := ContentRecord{
		CanonicalID: "c1",
		PolishBundle: PolishBundle{
			PolishedDescriptionJA: "ja text", OneLinerJA: "ja one",
			PolishedDescriptionZH: "zh text", OneLinerZH: "zh one",
			PolishedDescriptionEN: "en text", OneLinerEN: "en one",
		},
		FetchedAt: time.Unix(0, 0).UTC(),
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"polished_description", "one_liner", "polished_description_zh", "one_liner_zh", "polished_description_en", "one_liner_en"} {
		if _, ok := obj[key]; !ok {
			t.Errorf("expected flattened key %q in marshaled output, got %v", key, obj)
		}
	}
	if _, ok := obj["PolishBundle"]; ok {
		t.Errorf("expected no nested PolishBundle key, got %v", obj)
	}
}

func TestContentRecord_UnmarshalJSON_RoundTrips(t *testing.T) {
	original := ContentRecord{
		CanonicalID: "c1",
		PolishBundle: PolishBundle{
			PolishedDescriptionJA: "ja text", OneLinerJA: "ja one",
			PolishedDescriptionZH: "zh text", OneLinerZH: "zh one",
			PolishedDescriptionEN: "en text", OneLinerEN: "en one",
		},
		Status:    ContentStatusOK,
		FetchedAt: time.Unix(1000, 0).UTC(),
	}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var back ContentRecord
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.PolishedDescriptionJA != "ja text" || back.OneLinerEN != "en one" {
		t.Errorf("polish bundle lost in round trip: %+v", back)
	}
	if back.CanonicalID != "c1" || back.Status != ContentStatusOK {
		t.Errorf("modeled fields lost in round trip: %+v", back)
	}
	if !back.FetchedAt.Equal(original.FetchedAt) {
		t.Errorf("fetched_at lost in round trip: got %v want %v", back.FetchedAt, original.FetchedAt)
	}
}
