// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc

import (
	"github.com/q191201771/esfeeder/pkg/base"
)

// IterateNaluStartCode 从<start>位置开始查找start code
//
// @return pos:    start code的起始位置，没找到时返回-1
// @return length: start code的长度，3或4
func IterateNaluStartCode(nalu []byte, start int) (pos, length int) {
	if nalu == nil || start >= len(nalu) {
		return -1, -1
	}
	count := 0
	for i := start; i < len(nalu); i++ {
		switch nalu[i] {
		case 0:
			count++
		case 1:
			if count >= 3 {
				return i - 3, 4
			}
			if count == 2 {
				return i - 2, 3
			}
			count = 0
		default:
			count = 0
		}
	}
	return -1, -1
}

// IterateNaluAnnexb 遍历Annex-B格式数据中的nal unit，回调的nal不包含start code
//
// 注意，回调的nal与<nals>共享内存块
func IterateNaluAnnexb(nals []byte, handler func(nal []byte)) error {
	pos, length := IterateNaluStartCode(nals, 0)
	if pos == -1 {
		return base.ErrAvc
	}
	for pos != -1 {
		start := pos + length
		pos, length = IterateNaluStartCode(nals, start)
		end := len(nals)
		if pos != -1 {
			end = pos
		}
		if start < end {
			handler(nals[start:end])
		}
	}
	return nil
}

func SplitNaluAnnexb(nals []byte) (nalList [][]byte, err error) {
	err = IterateNaluAnnexb(nals, func(nal []byte) {
		nalList = append(nalList, nal)
	})
	return
}

// SplitAccessUnitAnnexb 将h264裸流切分成access unit
//
// 已经出现过slice的情况下，遇到AUD、SPS、PPS、SEI、14~18类型的nal，或者first_mb_in_slice为0的slice，认为是新access unit的开始。
// 返回的每个access unit是<stream>中连续的一段，保留原有的start code。
// start code之前的数据被丢弃。
func SplitAccessUnitAnnexb(stream []byte) (auList [][]byte) {
	pos, length := IterateNaluStartCode(stream, 0)
	if pos == -1 {
		return nil
	}

	auStart := pos
	hasVcl := false
	for pos != -1 {
		nalStart := pos + length
		nextPos, nextLength := IterateNaluStartCode(stream, nalStart)
		nalEnd := len(stream)
		if nextPos != -1 {
			nalEnd = nextPos
		}

		if nalStart < nalEnd {
			nal := stream[nalStart:nalEnd]
			t := ParseNaluType(nal[0])

			var isBoundary bool
			switch {
			case t == NaluTypeAud || t == NaluTypeSps || t == NaluTypePps || t == NaluTypeSei || (t >= 14 && t <= 18):
				isBoundary = hasVcl
			case IsVclNaluType(t):
				// first_mb_in_slice是ue(v)，为0时编码为单个比特1
				isBoundary = hasVcl && len(nal) > 1 && nal[1]&0x80 != 0
			}

			if isBoundary {
				auList = append(auList, stream[auStart:pos])
				auStart = pos
				hasVcl = false
			}
			if IsVclNaluType(t) {
				hasVcl = true
			}
		}

		pos, length = nextPos, nextLength
	}

	if auStart < len(stream) {
		auList = append(auList, stream[auStart:])
	}
	return
}
