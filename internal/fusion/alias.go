package fusion

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/boogieLing/tsugie/internal/domain"
)

// LoadAliasMap reads an alias CSV, either headered (columns alias_name,
// canonical_name in any order) or headerless (two bare columns), and
// returns raw-normalized-name -> canonical-normalized-name. A missing file
// is not an error: it yields an empty map, matching upstream site crawlers
// that may not ship an alias file at all.
func LoadAliasMap(path string) (domain.AliasMap, error) {
	out := domain.AliasMap{}
	if path == "" {
		return out, nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return out, nil
	}

	aliasCol, canonCol := 0, 1
	start := 0
	if looksLikeHeader(records[0]) {
		aliasCol, canonCol = -1, -1
		for i, h := range records[0] {
			switch strings.TrimSpace(h) {
			case "alias_name":
				aliasCol = i
			case "canonical_name":
				canonCol = i
			}
		}
		start = 1
	}
	if aliasCol < 0 || canonCol < 0 {
		aliasCol, canonCol = 0, 1
	}

	for _, row := range records[start:] {
		if len(row) <= aliasCol || len(row) <= canonCol {
			continue
		}
		alias := normalizeNameRaw(row[aliasCol])
		canonical := normalizeNameRaw(row[canonCol])
		if alias != "" && canonical != "" {
			out[alias] = canonical
		}
	}
	return out, nil
}

func looksLikeHeader(row []string) bool {
	joined := strings.Join(row, ",")
	return strings.Contains(joined, "alias_name") && strings.Contains(joined, "canonical_name")
}
