// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtsp

import (
	"time"

	"github.com/q191201771/naza/pkg/mock"
	"github.com/q191201771/naza/pkg/nazalog"
)

var Log = nazalog.GetGlobalLogger()

// Clock SubSession按时间戳控制发送节奏时使用
var Clock = mock.NewStdClock()

var (
	serverCommandSessionReadBufSize = 256

	// DefaultWriteQueueSize SubSession发送队列的大小，单位帧
	DefaultWriteQueueSize = 8

	// 发送队列满时，等待多久再尝试拉取
	pumpBackoffInterval = 10 * time.Millisecond

	// SETUP回复中告知对端的超时时间，超过这个时间没有读写数据的session会被关闭
	sessionTimeoutSec = 60

	calcSessionStatIntervalSec uint32 = 5

	checkSessionAliveIntervalSec = uint32(sessionTimeoutSec)
)
