package market

import "sync"

// DeltaUpdate 一次成交更新后的结果。
type DeltaUpdate struct {
	Symbol string
	Point  DeltaPoint
	Stats  StatsSnapshot
}

// VWAPUpdate 一次行情快照更新后的结果。
type VWAPUpdate struct {
	Symbol string
	Point  VWAPPoint
}

// Publisher 一个轻量事件分发器；订阅者处理不过来时丢弃更新，不阻塞生产者。
type Publisher struct {
	mu        sync.RWMutex
	deltaSubs []chan DeltaUpdate
	vwapSubs  []chan VWAPUpdate
}

func NewPublisher() *Publisher {
	return &Publisher{
		deltaSubs: make([]chan DeltaUpdate, 0),
		vwapSubs:  make([]chan VWAPUpdate, 0),
	}
}

func (p *Publisher) SubscribeDelta(buffer int) <-chan DeltaUpdate {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan DeltaUpdate, buffer)
	p.mu.Lock()
	p.deltaSubs = append(p.deltaSubs, ch)
	p.mu.Unlock()
	return ch
}

func (p *Publisher) SubscribeVWAP(buffer int) <-chan VWAPUpdate {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan VWAPUpdate, buffer)
	p.mu.Lock()
	p.vwapSubs = append(p.vwapSubs, ch)
	p.mu.Unlock()
	return ch
}

// UnsubscribeDelta 注销并关闭订阅通道；未知通道返回 false。
func (p *Publisher) UnsubscribeDelta(ch <-chan DeltaUpdate) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, sub := range p.deltaSubs {
		if (<-chan DeltaUpdate)(sub) == ch {
			p.deltaSubs = append(p.deltaSubs[:i], p.deltaSubs[i+1:]...)
			close(sub)
			return true
		}
	}
	return false
}

func (p *Publisher) UnsubscribeVWAP(ch <-chan VWAPUpdate) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, sub := range p.vwapSubs {
		if (<-chan VWAPUpdate)(sub) == ch {
			p.vwapSubs = append(p.vwapSubs[:i], p.vwapSubs[i+1:]...)
			close(sub)
			return true
		}
	}
	return false
}

// PublishDelta returns how many subscribers missed the update.
func (p *Publisher) PublishDelta(u DeltaUpdate) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	dropped := 0
	for _, ch := range p.deltaSubs {
		select {
		case ch <- u:
		default:
			dropped++
		}
	}
	return dropped
}

func (p *Publisher) PublishVWAP(u VWAPUpdate) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	dropped := 0
	for _, ch := range p.vwapSubs {
		select {
		case ch <- u:
		default:
			dropped++
		}
	}
	return dropped
}
