package listener

import (
	"context"
	"time"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/metrics"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

const pushTimeout = 5 * time.Second

// MetricsPushListener はジョブ終了時に最終状態を記録し、Pushgateway が設定されていればメトリクスを送信します。
// 送信の失敗はログに出力するのみで、ジョブの結果には影響しません。
type MetricsPushListener struct {
	recorder       *metrics.Recorder
	pushgatewayURL string
	pushJobName    string
}

var _ core.JobExecutionListener = (*MetricsPushListener)(nil)

// NewMetricsPushListener は新しい MetricsPushListener を作成します。pushgatewayURL が空の場合は送信しません。
func NewMetricsPushListener(recorder *metrics.Recorder, pushgatewayURL, pushJobName string) *MetricsPushListener {
	return &MetricsPushListener{
		recorder:       recorder,
		pushgatewayURL: pushgatewayURL,
		pushJobName:    pushJobName,
	}
}

func (l *MetricsPushListener) BeforeJob(ctx context.Context, je *core.JobExecution) {}

func (l *MetricsPushListener) AfterJob(ctx context.Context, je *core.JobExecution) {
	l.recorder.ObserveJob(je)
	if l.pushgatewayURL == "" {
		return
	}

	// ジョブのコンテキストがキャンセルされていても送信できるよう、独立したコンテキストを使用します。
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()
	if err := l.recorder.Push(pushCtx, l.pushgatewayURL, l.pushJobName); err != nil {
		logger.Warnf("メトリクスの送信に失敗しました: %v", err)
		return
	}
	logger.Debugf("メトリクスを Pushgateway (%s) に送信しました。", l.pushgatewayURL)
}
