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

	"github.com/q191201771/esfeeder/pkg/avc"
	"github.com/q191201771/esfeeder/pkg/base"
)

// ParamSetCache 缓存第一帧开头固定长度的参数集（SPS、PPS以及它们的start code）
//
// 只捕获一次，之后只读，所有关键帧输出时都在前面拼上它
type ParamSetCache struct {
	length int

	mu   sync.RWMutex
	blob []byte
}

func NewParamSetCache(length int) *ParamSetCache {
	return &ParamSetCache{
		length: length,
	}
}

// Capture 拷贝<firstUnitPayload>的前length个字节，剩余部分作为第一帧返回
//
// 注意，不对参数集做语法校验，长度不匹配的输入属于调用方的前置条件错误
func (c *ParamSetCache) Capture(firstUnitPayload []byte) (rest []byte, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.blob != nil {
		return nil, base.ErrParamSetCaptured
	}
	if c.length <= 0 || len(firstUnitPayload) <= c.length {
		return nil, base.NewErrIngestionFailure(
			fmt.Sprintf("first unit too short for parameter set. len=%d, param_set_len=%d", len(firstUnitPayload), c.length), nil)
	}

	c.blob = make([]byte, c.length)
	copy(c.blob, firstUnitPayload)

	if !c.looksLikeParamSet() {
		Log.Warnf("parameter set blob does not look like sps+pps. param_set_len=%d, blob=%x", c.length, c.blob)
	}
	return firstUnitPayload[c.length:], nil
}

// Get 返回参数集，调用方不应修改返回的内存块
func (c *ParamSetCache) Get() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.blob == nil {
		return nil, base.ErrNotInitialized
	}
	return c.blob, nil
}

func (c *ParamSetCache) Len() int {
	return c.length
}

// SpsPps 从参数集中拆出SPS和PPS（不包含start code），不存在时对应返回nil
func (c *ParamSetCache) SpsPps() (sps, pps []byte) {
	blob, err := c.Get()
	if err != nil {
		return nil, nil
	}
	_ = avc.IterateNaluAnnexb(blob, func(nal []byte) {
		switch avc.ParseNaluType(nal[0]) {
		case avc.NaluTypeSps:
			if sps == nil {
				sps = nal
			}
		case avc.NaluTypePps:
			if pps == nil {
				pps = nal
			}
		}
	})
	return
}

func (c *ParamSetCache) looksLikeParamSet() bool {
	if len(c.blob) <= avc.NaluHeaderOffset {
		return false
	}
	return avc.ParseNaluType(c.blob[avc.NaluHeaderOffset]) == avc.NaluTypeSps
}
