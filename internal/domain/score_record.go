package domain

// Score statuses and sources.
const (
	ScoreStatusOK             = "ok"
	ScoreStatusCachedOK       = "cached_ok"
	ScoreStatusFallbackNoKey  = "fallback_no_api_key"
	ScoreStatusFallbackError  = "fallback_ai_error"
	ScoreStatusFallbackMaxEvt = "fallback_max_events"

	ScoreSourceAI       = "ai"
	ScoreSourceFallback = "fallback"

	ScoreProviderRemote = "remote"
	ScoreProviderLocal  = "local"
)

// ScoreRecord is the per-canonical-event, per-run popularity score: a
// heat score and a surprise score, plus enough provenance to decide
// whether a later run can reuse it instead of re-scoring.
type ScoreRecord struct {
	CanonicalID    string   `json:"canonical_id"`
	EventName      string   `json:"event_name"`
	EventDateStart string   `json:"event_date_start"`
	SourceURLs     []string `json:"source_urls"`

	InitialHeatScore int    `json:"initial_heat_score"`
	SurpriseScore    int    `json:"surprise_score"`
	Reason           string `json:"reason"`

	Status        string `json:"status"`
	ScoreSource   string `json:"score_source"`
	ScoreProvider string `json:"score_provider"`
	ScoreModel    string `json:"score_model"`

	InputHash   string `json:"input_hash"`
	Error       string `json:"error"`
	GeneratedAt string `json:"generated_at"`
}
