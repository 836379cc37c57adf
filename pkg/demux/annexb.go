// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package demux

import (
	"io"

	"github.com/q191201771/esfeeder/pkg/avc"
)

// AnnexbDemuxer h264裸流，只有一个流，StreamIndex为0
type AnnexbDemuxer struct {
	aus   [][]byte
	index int
}

// NewAnnexbDemuxer
//
// @param b: 整个h264裸流文件的内容，返回的Packet.Payload与<b>共享内存块
func NewAnnexbDemuxer(b []byte) *AnnexbDemuxer {
	return &AnnexbDemuxer{
		aus: avc.SplitAccessUnitAnnexb(b),
	}
}

func (d *AnnexbDemuxer) ReadPacket() (Packet, error) {
	if d.index >= len(d.aus) {
		return Packet{}, io.EOF
	}
	au := d.aus[d.index]
	d.index++
	return Packet{
		StreamIndex: 0,
		CodecType:   CodecTypeAvc,
		Payload:     au,
	}, nil
}

func (d *AnnexbDemuxer) Close() error {
	return nil
}
