// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"github.com/q191201771/naza/pkg/connection"
)

type IStatable interface {
	GetStat() connection.Stat
}

// SessionStat 根据连接的累计读写字节数计算码率，以及判断连接是否仍有数据读写
//
// 非并发安全
type SessionStat struct {
	prevConnStat connection.Stat
	staleStat    *connection.Stat

	readBitrate  int
	writeBitrate int
}

// Update 每隔<intervalSec>秒调用一次
func (s *SessionStat) Update(conn IStatable, intervalSec uint32) {
	if intervalSec == 0 {
		return
	}
	curr := conn.GetStat()
	s.readBitrate = int((curr.ReadBytesSum - s.prevConnStat.ReadBytesSum) * 8 / 1024 / uint64(intervalSec))
	s.writeBitrate = int((curr.WroteBytesSum - s.prevConnStat.WroteBytesSum) * 8 / 1024 / uint64(intervalSec))
	s.prevConnStat.ReadBytesSum = curr.ReadBytesSum
	s.prevConnStat.WroteBytesSum = curr.WroteBytesSum
}

// IsAlive 与上次调用相比是否有新的读写数据，第一次调用总是返回true
func (s *SessionStat) IsAlive(conn IStatable) (readAlive, writeAlive bool) {
	curr := conn.GetStat()
	if s.staleStat == nil {
		s.staleStat = new(connection.Stat)
		s.staleStat.ReadBytesSum = curr.ReadBytesSum
		s.staleStat.WroteBytesSum = curr.WroteBytesSum
		return true, true
	}

	readAlive = curr.ReadBytesSum != s.staleStat.ReadBytesSum
	writeAlive = curr.WroteBytesSum != s.staleStat.WroteBytesSum
	s.staleStat.ReadBytesSum = curr.ReadBytesSum
	s.staleStat.WroteBytesSum = curr.WroteBytesSum
	return
}

// ReadBitrate 单位kbit/s
func (s *SessionStat) ReadBitrate() int {
	return s.readBitrate
}

// WriteBitrate 单位kbit/s
func (s *SessionStat) WriteBitrate() int {
	return s.writeBitrate
}
