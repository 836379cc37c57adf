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
	"time"

	"github.com/q191201771/esfeeder/pkg/avc"
)

// AccessUnit 一帧h264数据，以4字节start code开头
//
// 入库后Payload只读，被所有session共享
type AccessUnit struct {
	Payload    []byte
	IsKeyframe bool
}

// NewAccessUnit 在入库时计算一次是否为关键帧，之后不再重新计算
func NewAccessUnit(payload []byte) (AccessUnit, error) {
	_, isIdr, err := avc.Classify(payload)
	if err != nil {
		return AccessUnit{}, err
	}
	return AccessUnit{
		Payload:    payload,
		IsKeyframe: isIdr,
	}, nil
}

func (au AccessUnit) Size() int {
	return len(au.Payload)
}

// Frame Feeder输出给下游的一帧数据
//
// 关键帧的Payload是参数集加上原始数据拼接后的新内存块，非关键帧的Payload与FrameStore共享，只读
type Frame struct {
	Payload    []byte
	IsKeyframe bool
	Timestamp  time.Duration
}

func (f Frame) DebugString() string {
	return fmt.Sprintf("[%p] key=%t, ts=%s, len=%d", f.Payload, f.IsKeyframe, f.Timestamp, len(f.Payload))
}
