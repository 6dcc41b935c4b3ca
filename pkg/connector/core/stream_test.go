package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
)

func punchesDescriptor() StreamDescriptor {
	return StreamDescriptor{
		Kind:              KindEmployeePunches,
		ID:                "employee_punches",
		KeyProperties:     []string{"PunchXRefCode"},
		ReplicationKey:    "SyncTimestampUtc",
		ReplicationMethod: ReplicationIncremental,
		ValidParams:       []string{"filterTransactionStartTimeUTC", "filterTransactionEndTimeUTC", "pageSize"},
		RequiredParams:    []string{"filterTransactionStartTimeUTC", "filterTransactionEndTimeUTC"},
		WindowStep:        7 * 24 * time.Hour,
	}
}

func TestValidateParams(t *testing.T) {
	d := punchesDescriptor()

	tests := []struct {
		name      string
		params    map[string]string
		satisfied []string
		wantErr   string
	}{
		{
			name:      "satisfied by windowing",
			params:    map[string]string{"pageSize": "500"},
			satisfied: []string{"filterTransactionStartTimeUTC", "filterTransactionEndTimeUTC"},
		},
		{
			name: "all supplied",
			params: map[string]string{
				"filterTransactionStartTimeUTC": "2024-01-01T00:00:00Z",
				"filterTransactionEndTimeUTC":   "2024-02-01T00:00:00Z",
			},
		},
		{
			name:      "unknown parameter",
			params:    map[string]string{"colour": "blue"},
			satisfied: []string{"filterTransactionStartTimeUTC", "filterTransactionEndTimeUTC"},
			wantErr:   "/employee_punches endpoint does not support 'colour' parameter.",
		},
		{
			name:      "missing required parameter",
			params:    map[string]string{},
			satisfied: []string{"filterTransactionStartTimeUTC"},
			wantErr:   "Parameter 'filterTransactionEndTimeUTC' required but not supplied for /employee_punches endpoint.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.ValidateParams(tt.params, tt.satisfied...)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}

func TestDescriptorHelpers(t *testing.T) {
	d := punchesDescriptor()
	assert.True(t, d.Incremental())
	assert.True(t, d.Windowed())
	assert.Equal(t, []string{"SyncTimestampUtc"}, d.BookmarkProperties())

	full := StreamDescriptor{ID: "report_x", ReplicationMethod: ReplicationFullTable}
	assert.False(t, full.Incremental())
	assert.False(t, full.Windowed())
	assert.Nil(t, full.BookmarkProperties())
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "employee_raw_punches", KindEmployeeRawPunches.String())
	assert.Equal(t, "StreamKind(99)", StreamKind(99).String())
	assert.Equal(t, "transforming", PhaseTransforming.String())
	assert.Equal(t, "failed", PhaseFailed.String())
}

func TestDependenciesDefaults(t *testing.T) {
	d := Dependencies{}.WithDefaults()
	assert.NotNil(t, d.Logger)
	assert.NotNil(t, d.Reporter)
	assert.NotNil(t, d.Metrics)
	assert.NotNil(t, d.Settings)
	assert.NotNil(t, d.Clock)
	assert.Equal(t, "dev", d.Version)
}
