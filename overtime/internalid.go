/*
internalid.go - Sequential human-readable request numbers

PURPOSE:
  Every request gets a cosmetic "N/YY" number, sequential per request
  kind per calendar year. The number is assigned exactly once at insert
  and never regenerated.

GENERATION:
  Scan existing ids for the current year suffix, take the maximum leading
  integer via ^(\d+)/YY$, return max+1. On a storage error the generator
  falls back to a timestamp-based id and logs a warning; request volume
  is low and these ids are not primary keys.

CONCURRENCY:
  Scan+max+1 is not collision-proof on its own. Inserts carry a unique
  index on (kind, internal_id), so a lost race surfaces as
  ErrDuplicateInternalID instead of a silent duplicate; the SQLite store
  additionally serializes writers in-process.
*/
package overtime

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"
)

// NextInternalID returns the next "N/YY" for the kind as of now.
func NextInternalID(ctx context.Context, store RequestStore, kind Kind, now time.Time, log *zap.Logger) string {
	yy := now.Format("06")

	ids, err := store.InternalIDs(ctx, kind, yy)
	if err != nil {
		if log != nil {
			log.Warn("internal id scan failed, falling back to timestamp id",
				zap.String("kind", string(kind)), zap.Error(err))
		}
		return fmt.Sprintf("%d/%s", now.UnixMilli(), yy)
	}

	pattern := regexp.MustCompile(`^(\d+)/` + regexp.QuoteMeta(yy) + `$`)
	max := 0
	for _, id := range ids {
		m := pattern.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(m[1], "%d", &n); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%d/%s", max+1, yy)
}
