// Package domain models the Japanese fireworks/festival event pipeline:
// raw per-site observations, the fused canonical event they resolve to,
// the geocoder's request/response shape, and the content and score records
// produced by downstream stages.
//
// # Pipeline shape
//
// Each run is identified by a run id (a caller-supplied override, or
// otherwise a random UUID). Stages never mutate a prior run's output;
// supersession happens by a project's latest_run.json pointing at a new
// run id.
//
// # Free-form input
//
// RawRecord carries a typed core plus an Extra bag for fields the upstream
// per-site scraper emitted that this pipeline does not know about. Unknown
// keys survive until the fusion winner is chosen for a field — only then may
// they be dropped, never before.
//
// # Low-confidence geo sources
//
// GeoSource values starting with "network_geocode", plus "missing" and
// "pref_center_fallback", are considered low-confidence: a canonical event
// with one of these is a candidate for the overlap-repair pass. See
// [IsLowConfidenceGeoSource].
package domain
