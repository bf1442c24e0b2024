package clock

import (
	"sync"
	"time"
)

// Mock はテスト用に操作可能な Clock です。
type Mock interface {
	Clock

	// Set は時刻を設定します。
	Set(t time.Time)

	// Add は時刻を d だけ進めます。
	Add(d time.Duration)
}

// NewMock は t に初期化された Mock を作成します。
func NewMock(t time.Time) Mock {
	return &mockClock{baseTime: t}
}

// NewTicking は Now が呼ばれるたびに step だけ進む Mock を作成します。
// レコードごとに異なる取り込み時刻が付与されることの検証に使用します。
func NewTicking(t time.Time, step time.Duration) Mock {
	return &mockClock{baseTime: t, step: step}
}

type mockClock struct {
	sync.Mutex
	baseTime time.Time
	step     time.Duration
}

func (m *mockClock) Now() time.Time {
	m.Lock()
	defer m.Unlock()

	now := m.baseTime
	m.baseTime = m.baseTime.Add(m.step)
	return now
}

func (m *mockClock) Set(t time.Time) {
	m.Lock()
	defer m.Unlock()
	m.baseTime = t
}

func (m *mockClock) Add(d time.Duration) {
	m.Lock()
	defer m.Unlock()
	m.baseTime = m.baseTime.Add(d)
}
