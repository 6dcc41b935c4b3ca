package dayforce

import (
	"github.com/ajitpratap0/tap-dayforce/pkg/connector/base"
)

// prepareRecord stamps raw with the run's sync timestamp. Empty records are
// reported and dropped: it returns nil for them.
func prepareRecord(raw map[string]interface{}, syncTimestamp string, streamID string, anomalies *base.ErrorHandler) map[string]interface{} {
	if len(raw) == 0 {
		anomalies.Warn(base.ReasonEmptyRecord,
			"Dayforce returned an empty "+streamID+" record. Skipping it..", nil)
		return nil
	}
	if syncTimestamp != "" {
		raw[SyncTimestampField] = syncTimestamp
	}
	return raw
}
