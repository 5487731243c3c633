package fusion

import "testing"

func TestNormalizeNameRaw_StripsDecorationsAndLowercases(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"series prefix", "第38回 隅田川花火大会", "隅田川花火大会"},
		{"bracketed year", "【2026年】隅田川花火大会", "隅田川花火大会"},
		{"trailing schedule suffix", "隅田川花火大会の日程・開催情報2026", "隅田川花火大会"},
		{"weathernews suffix", "隅田川花火大会 - ウェザーニュース", "隅田川花火大会"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeNameRaw(tc.in); got != tc.want {
				t.Errorf("normalizeNameRaw(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeNameRaw_EmptyInput(t *testing.T) {
	if got := normalizeNameRaw(""); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestNormalizeName_AppliesAlias(t *testing.T) {
	aliases := map[string]string{"隅田川花火大会": "隅田川花火大会 canonical"}
	raw, canonical, applied := normalizeName("隅田川花火大会", aliases)
	if !applied {
		t.Fatal("expected alias to apply")
	}
	if raw == canonical {
		t.Fatal("expected canonical to differ from raw when alias applies")
	}
	_ = raw
}

func TestNormalizeName_NoAliasMatch(t *testing.T) {
	raw, canonical, applied := normalizeName("隅田川花火大会", map[string]string{})
	if applied {
		t.Fatal("expected no alias to apply")
	}
	if raw != canonical {
		t.Errorf("expected raw == canonical without an alias, got %q vs %q", raw, canonical)
	}
}

func TestNormalizeEventNameForGeocode_StripsBracketsAndSubtitles(t *testing.T) {
	got := normalizeEventNameForGeocode("【2026】隅田川花火大会(台東区) - 開催案内")
	if got == "" {
		t.Fatal("expected non-empty result")
	}
	for _, bad := range []string{"【", "】", "(", ")"} {
		if containsRune(got, bad) {
			t.Errorf("expected brackets stripped, got %q", got)
		}
	}
}

func containsRune(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
