// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package demux

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/asticode/go-astits"
	"github.com/q191201771/naza/pkg/nazaerrors"
)

// TsDemuxer 使用go-astits解析mpegts，一个PES作为一个Packet，StreamIndex为PID
type TsDemuxer struct {
	r       io.Reader
	cancel  context.CancelFunc
	demuxer *astits.Demuxer
	pid2ct  map[uint16]CodecType
}

// NewTsDemuxer 如果<r>实现了io.Closer，读到结尾或Close时会关闭它
func NewTsDemuxer(r io.Reader) *TsDemuxer {
	ctx, cancel := context.WithCancel(context.Background())
	return &TsDemuxer{
		r:       r,
		cancel:  cancel,
		demuxer: astits.NewDemuxer(ctx, bufio.NewReader(r)),
		pid2ct:  make(map[uint16]CodecType),
	}
}

func (d *TsDemuxer) ReadPacket() (Packet, error) {
	for {
		data, err := d.demuxer.NextData()
		if err != nil {
			if errors.Is(err, astits.ErrNoMorePackets) {
				_ = d.Close()
				return Packet{}, io.EOF
			}
			return Packet{}, nazaerrors.Wrap(err)
		}

		if data.PMT != nil {
			for _, es := range data.PMT.ElementaryStreams {
				ct := CodecTypeUnknown
				switch es.StreamType {
				case astits.StreamTypeH264Video:
					ct = CodecTypeAvc
				case astits.StreamTypeAACAudio:
					ct = CodecTypeAac
				}
				if _, ok := d.pid2ct[es.ElementaryPID]; !ok {
					Log.Debugf("ts elementary stream. pid=%d, stream_type=%d, codec=%s", es.ElementaryPID, es.StreamType, ct.ReadableString())
				}
				d.pid2ct[es.ElementaryPID] = ct
			}
			continue
		}

		if data.PES == nil || data.FirstPacket == nil {
			continue
		}
		pid := data.FirstPacket.Header.PID
		return Packet{
			StreamIndex: int(pid),
			CodecType:   d.pid2ct[pid],
			Payload:     data.PES.Data,
		}, nil
	}
}

func (d *TsDemuxer) Close() error {
	d.cancel()
	if c, ok := d.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
