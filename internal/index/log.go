package index

import (
	"log/slog"
	"regexp"

	"github.com/kreuzverweis/lucenesail/internal/errs"
)

// rangeExprPattern recognizes the "[from TO to]" range-query syntax, so it
// can be scoped to a field without breaking the bracket syntax bleve's
// query-string parser expects.
var rangeExprPattern = regexp.MustCompile(`^\[.*\sTO\s.*]$`)

func logStaleLockBroken(dir string) {
	slog.Warn("breaking stale index write lock", slog.String("dir", dir))
}

func logMultipleHitsForSubject(err *errs.CorruptStateError) {
	slog.Warn("corrupt state detected", slog.String("subject", err.Subject), slog.String("reason", err.Reason))
}
