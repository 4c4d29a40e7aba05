package backup

import "errors"

// Fatal error classes. These surface before or instead of any database
// mutation; recoverable per-record problems go into the RestoreSummary
// instead of being returned.
var (
	// ErrInvalidManifest is returned when manifest.json is missing,
	// unparsable, or fails field validation.
	ErrInvalidManifest = errors.New("invalid backup manifest")

	// ErrExtraction is returned when the archive is corrupt or contains
	// unsafe paths.
	ErrExtraction = errors.New("failed to extract backup archive")

	// ErrTransaction is returned when the import transaction fails as a
	// whole and was rolled back.
	ErrTransaction = errors.New("restore transaction failed")
)

// errUnsafeMember marks archive members skipped during extraction because
// they would resolve outside the extraction directory or are not plain
// files. Recorded per member in the restore summary.
var errUnsafeMember = errors.New("unsafe archive member skipped")

// RecordError captures one non-fatal per-record failure during import or
// file restoration.
type RecordError struct {
	Table  string `json:"table"`
	Record string `json:"record"`
	Error  string `json:"error"`
}

// RestoreSummary aggregates the outcome of one restore call. Success
// reflects only the error list: a restore with skips but no errors is
// still a success.
type RestoreSummary struct {
	Restored map[string]int `json:"restored"`
	Skipped  map[string]int `json:"skipped"`
	Errors   []RecordError  `json:"errors"`
	Warnings []string       `json:"warnings"`
	Success  bool           `json:"success"`
}

// NewRestoreSummary returns an empty summary with counters initialized
// for every entity set.
func NewRestoreSummary() *RestoreSummary {
	restored := make(map[string]int, len(entityNames))
	skipped := make(map[string]int, len(entityNames))
	for _, name := range entityNames {
		restored[name] = 0
		skipped[name] = 0
	}
	return &RestoreSummary{
		Restored: restored,
		Skipped:  skipped,
		Errors:   []RecordError{},
		Warnings: []string{},
	}
}

func (s *RestoreSummary) addError(table, record string, err error) {
	s.Errors = append(s.Errors, RecordError{Table: table, Record: record, Error: err.Error()})
}

func (s *RestoreSummary) addWarning(message string) {
	s.Warnings = append(s.Warnings, message)
}

// finalize computes the success flag from the aggregated error list.
func (s *RestoreSummary) finalize() {
	s.Success = len(s.Errors) == 0
}
