package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsNoOp(t *testing.T) {
	var c *Collector
	require.NotPanics(t, func() {
		c.RecordRequest("GETATTR", "NFS3_OK", time.Millisecond)
	})
}

func TestNewCollectorNilRegistererDisabled(t *testing.T) {
	require.Nil(t, NewCollector(nil))
}

func TestCollectorRecordsAgainstRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	require.NotNil(t, c)

	c.RecordRequest("GETATTR", "NFS3_OK", 2*time.Millisecond)
	c.RecordRequest("GETATTR", "NFS3ERR_NOENT", time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	var sawRequests, sawDuration bool
	for _, f := range families {
		switch f.GetName() {
		case "nfsd3_requests_total":
			sawRequests = true
			require.Len(t, f.GetMetric(), 2)
		case "nfsd3_request_duration_seconds":
			sawDuration = true
		}
	}
	require.True(t, sawRequests)
	require.True(t, sawDuration)
}
