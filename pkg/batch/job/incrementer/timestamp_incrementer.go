package incrementer

import (
	"fmt"
	"strconv"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/util/clock"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// TimestampIncrementer はジョブパラメータに現在時刻を設定する JobParametersIncrementer の実装です。
// 実行ごとに新しい JobInstance が作成されるようにします。
type TimestampIncrementer struct {
	name  string
	clock clock.Clock
}

var _ core.JobParametersIncrementer = (*TimestampIncrementer)(nil)

// NewTimestampIncrementer は新しい TimestampIncrementer のインスタンスを作成します。
func NewTimestampIncrementer(name string, clk clock.Clock) *TimestampIncrementer {
	return &TimestampIncrementer{name: name, clock: clk}
}

// GetNext は既存のパラメータをコピーし、name のキーに現在時刻の Unix ミリ秒を文字列で設定して返します。
func (i *TimestampIncrementer) GetNext(params core.JobParameters) core.JobParameters {
	next := core.NewJobParameters()
	for k, v := range params.Params {
		next.Put(k, v)
	}

	ts := i.clock.Now().UnixMilli()
	next.Put(i.name, strconv.FormatInt(ts, 10))
	logger.Debugf("%s: '%s' を %d に設定しました。", i, i.name, ts)
	return next
}

// String は TimestampIncrementer の文字列表現を返します。
func (i *TimestampIncrementer) String() string {
	return fmt.Sprintf("TimestampIncrementer[name=%s]", i.name)
}
