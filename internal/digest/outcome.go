package digest

import "hashtools/internal/record"

// OutcomeKind classifies what happened to one scanned file.
type OutcomeKind int

const (
	// Recorded files produced a record.
	Recorded OutcomeKind = iota
	// Skipped files were filtered out or vanished before processing.
	Skipped
	// Failed files could not be read or classified.
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Recorded:
		return "recorded"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the typed result of processing one file.
type Outcome struct {
	Kind   OutcomeKind
	Path   string
	Record record.FileRecord
	Reason string
	Err    error
}

func recorded(path string, rec record.FileRecord) Outcome {
	return Outcome{Kind: Recorded, Path: path, Record: rec}
}

func skipped(path, reason string) Outcome {
	return Outcome{Kind: Skipped, Path: path, Reason: reason}
}

func failed(path string, err error) Outcome {
	return Outcome{Kind: Failed, Path: path, Err: err}
}
