package listener

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/metrics"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

func TestLoggingJobListener_LogsEveryFailure(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(nil)

	je := core.NewJobExecution("instance", "weatherJob", core.NewJobParameters())
	je.AddFailureException(errors.New("first failure"))
	je.MarkAsFailed(errors.New("second failure"))

	NewLoggingJobListener().AfterJob(context.Background(), je)

	out := buf.String()
	assert.Contains(t, out, "first failure")
	assert.Contains(t, out, "second failure")
}

func TestMetricsPushListener_PushesWhenConfigured(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := metrics.NewRecorder()
	je := core.NewJobExecution("instance", "weatherJob", core.NewJobParameters())
	je.MarkAsStarted()
	je.MarkAsCompleted()

	NewMetricsPushListener(rec, srv.URL, "weather_etl").AfterJob(context.Background(), je)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	n, err := testutil.GatherAndCount(rec.Registry(), "weather_etl_batch_job_status")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMetricsPushListener_NoURLSkipsPush(t *testing.T) {
	rec := metrics.NewRecorder()
	je := core.NewJobExecution("instance", "weatherJob", core.NewJobParameters())
	je.MarkAsFailed(errors.New("boom"))

	assert.NotPanics(t, func() {
		NewMetricsPushListener(rec, "", "weather_etl").AfterJob(context.Background(), je)
	})
}
