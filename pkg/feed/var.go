// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package feed

import "github.com/q191201771/naza/pkg/nazalog"

var Log = nazalog.GetGlobalLogger()

// DefaultParamSetLen 参数集缓存的默认长度：两个4字节start code，加上常见的22字节SPS和4字节PPS
const DefaultParamSetLen = 4 + 22 + 4 + 4

// DefaultFrameRate 时间戳按固定帧率生成
const DefaultFrameRate = 25
