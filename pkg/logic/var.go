// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import "github.com/q191201771/naza/pkg/nazalog"

var Log = nazalog.GetGlobalLogger()

const (
	defaultRtspAddr       = ":8554"
	defaultRtspMount      = "/test"
	defaultHttpApiAddr    = ":8083"
	defaultStreamWidth    = 384
	defaultStreamHeight   = 288
	defaultWriteQueueSize = 8
	defaultLogFilename    = "./logs/esfeeder.log"
)
