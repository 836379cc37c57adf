// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package feed

import (
	"github.com/q191201771/esfeeder/pkg/base"
)

// FrameStore 入库完成后只读的帧数组
//
// 每个session通过自己的Cursor按顺序消费，消费不会修改FrameStore本身，
// 所以多个session之间互不影响
type FrameStore struct {
	units  []AccessUnit
	frozen bool
}

func NewFrameStore() *FrameStore {
	return &FrameStore{}
}

// Append 只在入库阶段调用
func (s *FrameStore) Append(unit AccessUnit) error {
	if s.frozen {
		return base.ErrFrameStoreFrozen
	}
	s.units = append(s.units, unit)
	return nil
}

// Freeze 入库结束，之后FrameStore只读，可以被多个goroutine并发访问
func (s *FrameStore) Freeze() {
	s.frozen = true
}

func (s *FrameStore) IsFrozen() bool {
	return s.frozen
}

func (s *FrameStore) Len() int {
	return len(s.units)
}

func (s *FrameStore) At(i int) AccessUnit {
	return s.units[i]
}

// KeyframeCount 关键帧数量
func (s *FrameStore) KeyframeCount() (n int) {
	for _, u := range s.units {
		if u.IsKeyframe {
			n++
		}
	}
	return
}

// NewCursor 创建一个从头开始的消费游标
func (s *FrameStore) NewCursor() *Cursor {
	return &Cursor{
		store: s,
	}
}

// ---------------------------------------------------------------------------------------------------------------------

// Cursor 对单个session而言是一个先进先出的队列，PopFront之后该帧对这个session不再可见
//
// Cursor本身不是并发安全的，由持有它的Feeder加锁
type Cursor struct {
	store *FrameStore
	index int
}

// PeekFront 返回队首帧但不出队，队列为空时第二个返回值为false
func (c *Cursor) PeekFront() (AccessUnit, bool) {
	if c.IsEmpty() {
		return AccessUnit{}, false
	}
	return c.store.units[c.index], true
}

// PopFront 队首帧出队，队列为空时第二个返回值为false
func (c *Cursor) PopFront() (AccessUnit, bool) {
	unit, ok := c.PeekFront()
	if ok {
		c.index++
	}
	return unit, ok
}

func (c *Cursor) IsEmpty() bool {
	return c.index >= len(c.store.units)
}

func (c *Cursor) Remaining() int {
	return len(c.store.units) - c.index
}
