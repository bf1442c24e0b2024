package incrementer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/util/clock"
)

func TestTimestampIncrementer_GetNext(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	inc := NewTimestampIncrementer("run.timestamp", clock.NewMock(now))

	params := core.NewJobParameters()
	params.Put("city", "Lagos")

	next := inc.GetNext(params)
	v, ok := next.GetString("run.timestamp")
	assert.True(t, ok)
	assert.Equal(t, "1714564800000", v)

	city, _ := next.GetString("city")
	assert.Equal(t, "Lagos", city)
	_, present := params.Get("run.timestamp")
	assert.False(t, present, "元のパラメータは変更されないこと")
}
