// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtprtcp

import (
	"math/rand"
	"time"
)

type RtpPacker struct {
	payloadPacker *RtpPackerPayloadAvc
	clockRate     int
	ssrc          uint32
	option        RtpPackerOption

	seq uint16
}

type RtpPackerOption struct {
	MaxPayloadSize int
	PacketType     uint8
	FirstSeq       uint16 // 初始seq，如果不设置，则随机产生
}

var defaultRtpPackerOption = RtpPackerOption{
	MaxPayloadSize: 1200,
	PacketType:     RtpPacketTypeAvc,
}

type ModRtpPackerOption func(option *RtpPackerOption)

func NewRtpPacker(payloadPacker *RtpPackerPayloadAvc, clockRate int, ssrc uint32, modOptions ...ModRtpPackerOption) *RtpPacker {
	option := defaultRtpPackerOption
	option.FirstSeq = uint16(rand.Int() % 65536)

	for _, fn := range modOptions {
		fn(&option)
	}

	return &RtpPacker{
		payloadPacker: payloadPacker,
		clockRate:     clockRate,
		ssrc:          ssrc,
		option:        option,
		seq:           option.FirstSeq,
	}
}

// Pack 将一帧数据打包成rtp包，帧的最后一个包设置mark
//
// @param frame:     Annex-B格式的一帧数据
// @param timestamp: 帧的相对时间戳，按clockRate转换成rtp时间戳
func (r *RtpPacker) Pack(frame []byte, timestamp time.Duration) (out []RtpPacket) {
	payloads := r.payloadPacker.Pack(frame, r.option.MaxPayloadSize)
	ts := r.rtpTimestamp(timestamp)
	for i, payload := range payloads {
		h := MakeDefaultRtpHeader()
		if i == len(payloads)-1 {
			h.Mark = 1
		}
		h.PacketType = r.option.PacketType
		h.Seq = r.genSeq()
		h.Timestamp = ts
		h.Ssrc = r.ssrc
		out = append(out, MakeRtpPacket(h, payload))
	}
	return
}

func (r *RtpPacker) Ssrc() uint32 {
	return r.ssrc
}

// NextSeq 下一个rtp包将使用的seq，用于RTSP PLAY回复中的RTP-Info
func (r *RtpPacker) NextSeq() uint16 {
	return r.seq
}

func (r *RtpPacker) rtpTimestamp(d time.Duration) uint32 {
	return uint32(int64(d) * int64(r.clockRate) / int64(time.Second))
}

func (r *RtpPacker) genSeq() (ret uint16) {
	ret = r.seq
	r.seq++
	return
}

// GenSsrc 随机生成ssrc
func GenSsrc() uint32 {
	return rand.Uint32()
}
