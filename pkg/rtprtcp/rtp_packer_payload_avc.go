// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtprtcp

import (
	"github.com/q191201771/esfeeder/pkg/avc"
)

// RtpPackerPayloadAvc 将Annex-B格式的h264帧切分成rtp payload
//
// 小于等于maxSize的nal使用Single NAL Unit packet，大于的使用FU-A分片，AUD被丢弃
type RtpPackerPayloadAvc struct {
}

func NewRtpPackerPayloadAvc() *RtpPackerPayloadAvc {
	return &RtpPackerPayloadAvc{}
}

// Pack
//
// @param in: Annex-B格式
//
// @return out: 内存块为独立新申请；函数返回后，内部不再持有该内存块
func (r *RtpPackerPayloadAvc) Pack(in []byte, maxSize int) (out [][]byte) {
	if in == nil || maxSize <= 2 {
		return
	}

	_ = avc.IterateNaluAnnexb(in, func(nal []byte) {
		if avc.ParseNaluType(nal[0]) == avc.NaluTypeAud {
			return
		}
		out = append(out, r.PackNal(nal, maxSize)...)
	})
	return
}

func (r *RtpPackerPayloadAvc) PackNal(nal []byte, maxSize int) (out [][]byte) {
	// 输入
	// nri     [01, 02]
	// nalType [03, 07]
	//
	// 输出
	// nri     [01, 02]
	// 28      [03, 07]    28是avc fua的nal type
	// start   [10]
	// end     [11]
	// nalType [13, 17]

	// single
	if len(nal) <= maxSize {
		item := make([]byte, len(nal))
		copy(item, nal)
		out = append(out, item)
		return
	}

	// FU-A

	const headerSize = 2
	nalType := nal[0] & 0x1F
	nri := nal[0] & 0x60

	// 跳过输入的nal type那个字节，使用FU-A自己的两个字节的头
	bpos := 1
	epos := len(nal)
	for bpos < epos {
		n := epos - bpos
		if n > maxSize-headerSize {
			n = maxSize - headerSize
		}
		item := make([]byte, headerSize+n)
		item[0] = NaluTypeAvcFua | nri
		item[1] = nalType
		if bpos == 1 {
			item[1] |= 0x80 // start
		}
		if bpos+n == epos {
			item[1] |= 0x40 // end
		}
		copy(item[headerSize:], nal[bpos:bpos+n])
		out = append(out, item)
		bpos += n
	}
	return
}
