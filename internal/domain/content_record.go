package domain

import (
	"encoding/json"
	"time"
)

// Content record statuses.
const (
	ContentStatusOK            = "ok"
	ContentStatusPartial       = "partial"
	ContentStatusEmpty         = "empty"
	ContentStatusCached        = "cached"
	ContentStatusOpenAIFailed  = "openai_failed"
	ContentStatusCodexFailed   = "codex_failed"
	ContentStatusFallbackNoKey = "fallback_no_api_key"
)

// Polish modes selectable per content-enrichment run.
const (
	PolishModeOpenAI = "openai"
	PolishModeCodex  = "codex"
	PolishModeNone   = "none"
	PolishModeAuto   = "auto"
)

// PolishBundle is the six-field multilingual text object a polisher
// produces: {polished_description, one_liner} x {ja, zh, en}.
type PolishBundle struct {
	PolishedDescriptionJA string
	OneLinerJA            string
	PolishedDescriptionZH string
	OneLinerZH            string
	PolishedDescriptionEN string
	OneLinerEN            string
}

// Complete reports whether all six fields of the bundle are non-empty.
func (b PolishBundle) Complete() bool {
	return b.PolishedDescriptionJA != "" && b.OneLinerJA != "" &&
		b.PolishedDescriptionZH != "" && b.OneLinerZH != "" &&
		b.PolishedDescriptionEN != "" && b.OneLinerEN != ""
}

// ContentRecord is the content-enrichment pipeline's per-canonical-event,
// per-run output.
type ContentRecord struct {
	CanonicalID    string `json:"canonical_id"`
	Category       string `json:"category"`
	EventName      string `json:"event_name"`
	EventDateStart string `json:"event_date_start"`
	EventDateEnd   string `json:"event_date_end"`
	FusedRunID     string `json:"fused_run_id"`

	DescriptionSourceURL string `json:"description_source_url"`
	RawDescription       string `json:"raw_description"`

	PolishBundle `json:"-"`

	ImageURLs        []string `json:"image_urls"`
	DownloadedImages []string `json:"downloaded_images"`

	SourceURLs    []string `json:"source_urls"`
	SourceURLsSig string   `json:"source_urls_sig"`

	Status string `json:"status"`
	Error  string `json:"error"`

	FetchedAt   time.Time `json:"fetched_at"`
	PolishMode  string    `json:"polish_mode"`
	PolishModel string    `json:"polish_model"`

	InputHash             string `json:"input_hash,omitempty"`
	PolishI18nIncomplete  bool   `json:"polish_i18n_incomplete,omitempty"`
}

// contentRecordAlias has the same fields as ContentRecord, minus the
// embedded PolishBundle (tagged json:"-" there so the alias's own
// fields don't collide with the flattened ones MarshalJSON/UnmarshalJSON
// add by hand below).
type contentRecordAlias struct {
	CanonicalID    string `json:"canonical_id"`
	Category       string `json:"category"`
	EventName      string `json:"event_name"`
	EventDateStart string `json:"event_date_start"`
	EventDateEnd   string `json:"event_date_end"`
	FusedRunID     string `json:"fused_run_id"`

	DescriptionSourceURL string `json:"description_source_url"`
	RawDescription       string `json:"raw_description"`

	PolishedDescriptionJA string `json:"polished_description"`
	OneLinerJA            string `json:"one_liner"`
	PolishedDescriptionZH string `json:"polished_description_zh"`
	OneLinerZH            string `json:"one_liner_zh"`
	PolishedDescriptionEN string `json:"polished_description_en"`
	OneLinerEN            string `json:"one_liner_en"`

	ImageURLs        []string `json:"image_urls"`
	DownloadedImages []string `json:"downloaded_images"`

	SourceURLs    []string `json:"source_urls"`
	SourceURLsSig string   `json:"source_urls_sig"`

	Status string `json:"status"`
	Error  string `json:"error"`

	FetchedAt   time.Time `json:"fetched_at"`
	PolishMode  string    `json:"polish_mode"`
	PolishModel string    `json:"polish_model"`

	InputHash            string `json:"input_hash,omitempty"`
	PolishI18nIncomplete bool   `json:"polish_i18n_incomplete,omitempty"`
}

// MarshalJSON flattens the embedded PolishBundle's six fields onto the
// record's own JSON object, matching events_content.jsonl's flat header
// instead of nesting them under a "PolishBundle" key.
func (c ContentRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(contentRecordAlias{
		CanonicalID: c.CanonicalID, Category: c.Category, EventName: c.EventName,
		EventDateStart: c.EventDateStart, EventDateEnd: c.EventDateEnd, FusedRunID: c.FusedRunID,
		DescriptionSourceURL: c.DescriptionSourceURL, RawDescription: c.RawDescription,
		PolishedDescriptionJA: c.PolishedDescriptionJA, OneLinerJA: c.OneLinerJA,
		PolishedDescriptionZH: c.PolishedDescriptionZH, OneLinerZH: c.OneLinerZH,
		PolishedDescriptionEN: c.PolishedDescriptionEN, OneLinerEN: c.OneLinerEN,
		ImageURLs: c.ImageURLs, DownloadedImages: c.DownloadedImages,
		SourceURLs: c.SourceURLs, SourceURLsSig: c.SourceURLsSig,
		Status: c.Status, Error: c.Error,
		FetchedAt: c.FetchedAt, PolishMode: c.PolishMode, PolishModel: c.PolishModel,
		InputHash: c.InputHash, PolishI18nIncomplete: c.PolishI18nIncomplete,
	})
}

// UnmarshalJSON reverses MarshalJSON, folding the six flattened polish
// fields back into the embedded PolishBundle.
func (c *ContentRecord) UnmarshalJSON(data []byte) error {
	var alias contentRecordAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*c = ContentRecord{
		CanonicalID: alias.CanonicalID, Category: alias.Category, EventName: alias.EventName,
		EventDateStart: alias.EventDateStart, EventDateEnd: alias.EventDateEnd, FusedRunID: alias.FusedRunID,
		DescriptionSourceURL: alias.DescriptionSourceURL, RawDescription: alias.RawDescription,
		PolishBundle: PolishBundle{
			PolishedDescriptionJA: alias.PolishedDescriptionJA, OneLinerJA: alias.OneLinerJA,
			PolishedDescriptionZH: alias.PolishedDescriptionZH, OneLinerZH: alias.OneLinerZH,
			PolishedDescriptionEN: alias.PolishedDescriptionEN, OneLinerEN: alias.OneLinerEN,
		},
		ImageURLs: alias.ImageURLs, DownloadedImages: alias.DownloadedImages,
		SourceURLs: alias.SourceURLs, SourceURLsSig: alias.SourceURLsSig,
		Status: alias.Status, Error: alias.Error,
		FetchedAt: alias.FetchedAt, PolishMode: alias.PolishMode, PolishModel: alias.PolishModel,
		InputHash: alias.InputHash, PolishI18nIncomplete: alias.PolishI18nIncomplete,
	}
	return nil
}

// HasDescription reports whether any description text was captured.
func (c ContentRecord) HasDescription() bool {
	return c.RawDescription != "" || c.PolishBundle.PolishedDescriptionJA != ""
}

// HasImages reports whether at least one image reference was captured.
func (c ContentRecord) HasImages() bool {
	return len(c.ImageURLs) > 0 || len(c.DownloadedImages) > 0
}
