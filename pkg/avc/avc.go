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

// Annex-B格式的h264裸流，每个nal unit以start code开头
//
// 本工程的输入约定access unit以4字节的start code开头，nal header紧随其后。
// 不处理3字节start code以及nal header之前存在防竞争字节的情况。

var NaluStartCode3 = []byte{0x0, 0x0, 0x1}
var NaluStartCode4 = []byte{0x0, 0x0, 0x0, 0x1}

// NaluHeaderOffset access unit中nal header所在的位置，也即4字节start code的长度
const NaluHeaderOffset = 4

var NaluTypeMapping = map[uint8]string{
	1:  "SLICE",
	5:  "IDR",
	6:  "SEI",
	7:  "SPS",
	8:  "PPS",
	9:  "AUD",
	12: "FD",
}

const (
	NaluTypeSlice    uint8 = 1
	NaluTypeIdrSlice uint8 = 5
	NaluTypeSei      uint8 = 6
	NaluTypeSps      uint8 = 7
	NaluTypePps      uint8 = 8
	NaluTypeAud      uint8 = 9
	NaluTypeFd       uint8 = 12
)

func ParseNaluType(v uint8) uint8 {
	return v & 0x1f
}

func ParseNaluTypeReadable(v uint8) string {
	ret, ok := NaluTypeMapping[ParseNaluType(v)]
	if !ok {
		return "unknown"
	}
	return ret
}

// IsVclNaluType slice以及data partition
func IsVclNaluType(t uint8) bool {
	return t >= NaluTypeSlice && t <= NaluTypeIdrSlice
}

// Classify 判断access unit的nal类型，以及是否为IDR帧
//
// @param payload: 以4字节start code开头的access unit
//
// @return err: payload长度不足5字节时返回 base.ErrMalformedUnit
func Classify(payload []byte) (naluType uint8, isIdr bool, err error) {
	if len(payload) <= NaluHeaderOffset {
		return 0, false, base.NewErrMalformedUnit(len(payload))
	}
	naluType = ParseNaluType(payload[NaluHeaderOffset])
	return naluType, naluType == NaluTypeIdrSlice, nil
}
