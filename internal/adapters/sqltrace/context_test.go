package sqltrace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yevheniidehtiar/sqlsmell/domain/issue"
)

func TestWithRequestContextRoundTrip(t *testing.T) {
	rc := issue.NewRequestContext(8)
	ctx := WithRequestContext(context.Background(), rc)

	assert.Same(t, rc, RequestContextFrom(ctx))
}

func TestRequestContextFromMissing(t *testing.T) {
	assert.Nil(t, RequestContextFrom(context.Background()))
}

func TestSinkFromRecordsIntoAccumulator(t *testing.T) {
	rc := issue.NewRequestContext(0)
	ctx := WithRequestContext(context.Background(), rc)

	SinkFrom(ctx).Record(ctx, issue.QueryRecord{SQL: "SELECT 1", Duration: time.Millisecond})

	require.Equal(t, 1, rc.Len())
	assert.Equal(t, "SELECT 1", rc.Records()[0].SQL)
}

func TestSinkFromWithoutAccumulatorIsNoop(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		SinkFrom(ctx).Record(ctx, issue.QueryRecord{SQL: "SELECT 1"})
	})
}

func TestRecordQueryWithoutAccumulator(t *testing.T) {
	assert.NotPanics(t, func() {
		recordQuery(context.Background(), "SELECT 1", time.Now(), time.Millisecond)
	})
}

func TestRecordQueryPreservesOrder(t *testing.T) {
	rc := issue.NewRequestContext(0)
	ctx := WithRequestContext(context.Background(), rc)

	recordQuery(ctx, "SELECT 1", time.Now(), time.Millisecond)
	recordQuery(ctx, "SELECT 2", time.Now(), time.Millisecond)
	recordQuery(ctx, "SELECT 3", time.Now(), time.Millisecond)

	recs := rc.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, "SELECT 1", recs[0].SQL)
	assert.Equal(t, "SELECT 2", recs[1].SQL)
	assert.Equal(t, "SELECT 3", recs[2].SQL)
}

func TestRecordQueryStackDepthZeroDisablesCapture(t *testing.T) {
	rc := issue.NewRequestContext(0)
	ctx := WithRequestContext(context.Background(), rc)

	recordQuery(ctx, "SELECT 1", time.Now(), time.Millisecond)

	recs := rc.Records()
	require.Len(t, recs, 1)
	assert.Empty(t, recs[0].Stack)
}
