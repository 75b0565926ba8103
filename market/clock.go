package market

import "time"

// Clock 抽象时间便于测试。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// SystemClock is the default wall clock used when a snapshot carries no timestamp.
var SystemClock Clock = realClock{}
