package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordReasoningCall(t *testing.T) {
	before := testutil.ToFloat64(ReasoningCallsTotal.WithLabelValues("analysis", "error"))

	RecordReasoningCall("analysis", errors.New("boom"))

	after := testutil.ToFloat64(ReasoningCallsTotal.WithLabelValues("analysis", "error"))
	assert.Equal(t, before+1, after)
}

func TestRecordFetch(t *testing.T) {
	fetchesBefore := testutil.ToFloat64(ListingFetchesTotal.WithLabelValues("blocked", "Cloudflare"))
	listingsBefore := testutil.ToFloat64(ListingsExtracted)

	RecordFetch("blocked", "Cloudflare", 0, time.Second)
	RecordFetch("ok", "", 3, time.Second)

	assert.Equal(t, fetchesBefore+1, testutil.ToFloat64(ListingFetchesTotal.WithLabelValues("blocked", "Cloudflare")))
	assert.Equal(t, listingsBefore+3, testutil.ToFloat64(ListingsExtracted))
}

func TestRecordStage(t *testing.T) {
	RecordStage("selection", nil, 250*time.Millisecond)

	assert.GreaterOrEqual(t, testutil.CollectAndCount(StageDuration, "pillwise_stage_duration_seconds"), 1)
}
