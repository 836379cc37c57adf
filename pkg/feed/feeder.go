// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package feed

import (
	"fmt"
	"sync"
	"time"

	"github.com/q191201771/esfeeder/pkg/base"
)

// Sink Feeder的下游，也即传输层
//
// 回调在Feeder持有锁的情况下发生，实现方不能在回调中同步调用Feeder的方法，也不应阻塞
type Sink interface {
	OnFrame(frame Frame) error

	// OnEndOfStream 数据耗尽后，每次拉取都会回调一次
	OnEndOfStream()
}

type FeederState int

const (
	StateAwaitingFirstKeyframe FeederState = iota
	StateStreaming
	StateDrained
)

func (s FeederState) String() string {
	switch s {
	case StateAwaitingFirstKeyframe:
		return "AwaitingFirstKeyframe"
	case StateStreaming:
		return "Streaming"
	case StateDrained:
		return "Drained"
	}
	return fmt.Sprintf("FeederState(%d)", int(s))
}

type FeederOption struct {
	FrameRate int
}

var defaultFeederOption = FeederOption{
	FrameRate: DefaultFrameRate,
}

type ModFeederOption func(option *FeederOption)

type FeederStat struct {
	State            string        `json:"state"`
	EmittedFrames    uint64        `json:"emitted_frames"`
	EmittedKeyframes uint64        `json:"emitted_keyframes"`
	EmittedBytes     uint64        `json:"emitted_bytes"`
	DroppedAtGating  uint64        `json:"dropped_at_gating"`
	LastTimestamp    time.Duration `json:"last_timestamp"`
	Remaining        int           `json:"remaining"`
}

// Feeder 拉模式的帧调度器，每个session一个
//
// 下游每请求一次（OnNeedData）输出一帧，不预读，不缓存
type Feeder struct {
	uniqueKey     string
	option        FeederOption
	frameDuration time.Duration

	cache  *ParamSetCache
	cursor *Cursor
	sink   Sink

	mu               sync.Mutex
	state            FeederState
	clockAccumulator time.Duration
	paused           bool
	stat             FeederStat
}

func NewFeeder(cache *ParamSetCache, cursor *Cursor, sink Sink, modOptions ...ModFeederOption) *Feeder {
	option := defaultFeederOption
	for _, fn := range modOptions {
		fn(&option)
	}
	uk := base.GenUkFeeder()
	if option.FrameRate <= 0 {
		Log.Warnf("[%s] invalid frame rate, use default. frame_rate=%d", uk, option.FrameRate)
		option.FrameRate = DefaultFrameRate
	}

	f := &Feeder{
		uniqueKey:     uk,
		option:        option,
		frameDuration: time.Second / time.Duration(option.FrameRate),
		cache:         cache,
		cursor:        cursor,
		sink:          sink,
		state:         StateAwaitingFirstKeyframe,
	}
	Log.Infof("[%s] lifecycle new feeder. frame_rate=%d, remaining=%d", uk, option.FrameRate, cursor.Remaining())
	return f
}

// OnNeedData 下游请求一帧数据
//
// 处于AwaitingFirstKeyframe时，丢弃队首所有非关键帧，找到关键帧后在本次请求中直接输出它。
// 数据耗尽时进入Drained并回调OnEndOfStream。
// 返回错误表示该session无法继续，Feeder已进入Drained。
func (f *Feeder) OnNeedData() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.paused = false

	switch f.state {
	case StateDrained:
		f.sink.OnEndOfStream()
		return nil
	case StateAwaitingFirstKeyframe:
		for {
			unit, ok := f.cursor.PeekFront()
			if !ok {
				Log.Warnf("[%s] no keyframe found. dropped=%d", f.uniqueKey, f.stat.DroppedAtGating)
				f.drain()
				return nil
			}
			if unit.IsKeyframe {
				break
			}
			f.cursor.PopFront()
			f.stat.DroppedAtGating++
		}
		Log.Debugf("[%s] first keyframe found. dropped=%d", f.uniqueKey, f.stat.DroppedAtGating)
		f.state = StateStreaming
	}

	return f.emitNext()
}

// OnEnoughData 下游通知数据足够，只是建议，Feeder本身不会主动推数据，这里只做记录，下次OnNeedData时清除
func (f *Feeder) OnEnoughData() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
}

func (f *Feeder) State() FeederState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Feeder) IsPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *Feeder) Stat() FeederStat {
	f.mu.Lock()
	defer f.mu.Unlock()
	stat := f.stat
	stat.State = f.state.String()
	stat.Remaining = f.cursor.Remaining()
	return stat
}

func (f *Feeder) UniqueKey() string {
	return f.uniqueKey
}

func (f *Feeder) FrameDuration() time.Duration {
	return f.frameDuration
}

// ----- private -------------------------------------------------------------------------------------------------------

func (f *Feeder) emitNext() error {
	unit, ok := f.cursor.PopFront()
	if !ok {
		f.drain()
		return nil
	}

	payload := unit.Payload
	if unit.IsKeyframe {
		blob, err := f.cache.Get()
		if err != nil {
			f.state = StateDrained
			return fmt.Errorf("[%s] get parameter set failed: %w", f.uniqueKey, err)
		}
		payload = make([]byte, len(blob)+len(unit.Payload))
		copy(payload, blob)
		copy(payload[len(blob):], unit.Payload)
	}

	frame := Frame{
		Payload:    payload,
		IsKeyframe: unit.IsKeyframe,
		Timestamp:  f.clockAccumulator,
	}
	f.clockAccumulator += f.frameDuration

	if err := f.sink.OnFrame(frame); err != nil {
		f.state = StateDrained
		return fmt.Errorf("[%s] sink failed: %w", f.uniqueKey, err)
	}

	f.stat.EmittedFrames++
	if frame.IsKeyframe {
		f.stat.EmittedKeyframes++
	}
	f.stat.EmittedBytes += uint64(len(frame.Payload))
	f.stat.LastTimestamp = frame.Timestamp
	return nil
}

func (f *Feeder) drain() {
	f.state = StateDrained
	Log.Infof("[%s] source exhausted. emitted=%d, dropped=%d", f.uniqueKey, f.stat.EmittedFrames, f.stat.DroppedAtGating)
	f.sink.OnEndOfStream()
}
