// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtprtcp

import (
	"github.com/q191201771/naza/pkg/bele"
)

// ---------------------------------
// rfc3550 6.6 BYE: Goodbye RTCP Packet
// ---------------------------------
//
//        0                   1                   2                   3
//        0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//        +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//        |V=2|P|    SC   |   PT=BYE=203  |             length            |
//        +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//        |                           SSRC/CSRC                           |
//        +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+

const (
	RtcpPacketTypeBye = 203

	RtcpByeLength = 8
)

// PackRtcpBye 流结束时通知对端
func PackRtcpBye(ssrc uint32) []byte {
	out := make([]byte, RtcpByeLength)
	out[0] = DefaultRtpVersion<<6 | 1
	out[1] = RtcpPacketTypeBye
	// length为32位字的个数减一
	bele.BePutUint16(out[2:], RtcpByeLength/4-1)
	bele.BePutUint32(out[4:], ssrc)
	return out
}
