package fusion

import (
	"encoding/csv"
	"io"
	"strconv"
)

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// WriteDedupLog serializes the dedup log to CSV, header first.
func WriteDedupLog(w io.Writer, entries []DedupLogEntry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write(DedupLogHeader); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{
			e.RunID, e.CanonicalID, e.DedupKey, e.SourceSite, e.SourceURL,
			e.EventYear, e.NameNormRaw, e.NameNormCanonical, boolFlag(e.AliasApplied), e.Action,
		}); err != nil {
			return err
		}
	}
	return cw.Error()
}

// WriteGeocodeLog serializes the geocode attempt log to CSV.
func WriteGeocodeLog(w io.Writer, entries []GeocodeLogEntry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write(GeocodeLogHeader); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{
			e.RunID, e.CanonicalID, e.Source, e.Status, e.QueryStrategy, e.Query,
			boolFlag(e.CacheHit), e.Lat, e.Lng, e.Title, e.Error,
		}); err != nil {
			return err
		}
	}
	return cw.Error()
}

// WriteOverlapRepairLog serializes the overlap-repair attempt log to CSV.
func WriteOverlapRepairLog(w io.Writer, entries []OverlapRepairLogEntry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write(OverlapRepairLogHeader); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{
			e.RunID, e.CanonicalID, e.Source, e.Status, e.QueryStrategy, e.Query,
			boolFlag(e.CacheHit), e.OldLat, e.OldLng, e.NewLat, e.NewLng, e.Title, e.Error,
		}); err != nil {
			return err
		}
	}
	return cw.Error()
}

// WriteIncompleteLog serializes the incomplete-events log to CSV.
func WriteIncompleteLog(w io.Writer, entries []IncompleteLogEntry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write(IncompleteLogHeader); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{
			e.RunID, e.CanonicalID, e.EventYear, e.EventName,
			strconv.Itoa(e.IncompleteFieldCount), e.IncompleteFields, e.UpdatePriority,
			e.PrimarySourceSite, e.PrimarySourceURL, e.RefreshMethod, e.SourceSites, e.SourceURLs,
		}); err != nil {
			return err
		}
	}
	return cw.Error()
}

// WriteAliasCandidatesLog serializes the alias-candidate suggestions log.
func WriteAliasCandidatesLog(w io.Writer, entries []AliasCandidateEntry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write(AliasCandidatesHeader); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{
			e.RunID, e.EventDate, e.Prefecture, e.NameNormA, e.NameDisplayA,
			e.SourceSiteA, e.SourceURLA, e.NameNormB, e.NameDisplayB,
			e.SourceSiteB, e.SourceURLB, strconv.FormatFloat(e.NameSimilarity, 'f', 3, 64),
		}); err != nil {
			return err
		}
	}
	return cw.Error()
}
