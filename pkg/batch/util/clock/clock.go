package clock

import "time"

// Clock は現在時刻を取得するためのインターフェースです。
// 取り込み時刻 (_ingested_at_) の付与など、テストで時刻を固定したい箇所で使用します。
type Clock interface {
	// Now は現在時刻を返します。
	Now() time.Time
}

// New は実時間を返す Clock を作成します。
func New() Clock {
	return &realClock{}
}

type realClock struct{}

func (r *realClock) Now() time.Time {
	return time.Now()
}
