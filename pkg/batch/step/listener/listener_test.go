package listener

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/metrics"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

func TestLoggingListener_ReportsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(nil)

	se := core.NewStepExecution("id", nil, "extractStep")
	l := NewLoggingListener()
	l.BeforeStep(context.Background(), se)
	se.MarkAsFailed(errors.New("boom"))
	l.AfterStep(context.Background(), se)

	out := buf.String()
	assert.Contains(t, out, "level=info")
	assert.Contains(t, out, "level=error")
	assert.Contains(t, out, "extractStep")
}

func TestMetricsListener_ObservesStep(t *testing.T) {
	rec := metrics.NewRecorder()
	je := core.NewJobExecution("instance", "weatherJob", core.NewJobParameters())
	se := core.NewStepExecution("id", je, "saveRawFileStep")
	se.StartTime = time.Now().Add(-time.Second)
	se.MarkAsCompleted()
	se.WriteCount = 1

	NewMetricsListener(rec).AfterStep(context.Background(), se)

	n, err := testutil.GatherAndCount(rec.Registry(), "weather_etl_batch_records_written_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
