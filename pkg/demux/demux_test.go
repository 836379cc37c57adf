// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package demux_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/asticode/go-astits"
	"github.com/q191201771/esfeeder/pkg/base"
	"github.com/q191201771/esfeeder/pkg/demux"
	"github.com/q191201771/naza/pkg/assert"
)

var (
	sps = []byte{0, 0, 0, 1, 0x67, 0x64, 0x00, 0x20, 0xac}
	pps = []byte{0, 0, 0, 1, 0x68, 0xeb, 0xec}
	idr = []byte{0, 0, 0, 1, 0x65, 0x88, 0x84, 0x00}
	p1  = []byte{0, 0, 0, 1, 0x41, 0x9a, 0x00}
	p2  = []byte{0, 0, 0, 1, 0x41, 0x9a, 0x01}
)

func join(bs ...[]byte) []byte {
	var out []byte
	for _, b := range bs {
		out = append(out, b...)
	}
	return out
}

func readAll(t *testing.T, d demux.Demuxer) []demux.Packet {
	var pkts []demux.Packet
	for {
		pkt, err := d.ReadPacket()
		if err == io.EOF {
			break
		}
		assert.Equal(t, nil, err)
		pkts = append(pkts, pkt)
	}
	return pkts
}

func TestAnnexbDemuxer(t *testing.T) {
	d := demux.NewAnnexbDemuxer(join(sps, pps, idr, p1, p2))
	pkts := readAll(t, d)
	assert.Equal(t, 3, len(pkts))
	assert.Equal(t, join(sps, pps, idr), pkts[0].Payload)
	assert.Equal(t, p1, pkts[1].Payload)
	assert.Equal(t, p2, pkts[2].Payload)
	for _, pkt := range pkts {
		assert.Equal(t, 0, pkt.StreamIndex)
		assert.Equal(t, demux.CodecTypeAvc, pkt.CodecType)
	}

	// 读完之后一直返回EOF
	_, err := d.ReadPacket()
	assert.Equal(t, io.EOF, err)
}

func TestTsDemuxer(t *testing.T) {
	var buf bytes.Buffer
	mx := astits.NewMuxer(context.Background(), &buf)
	err := mx.AddElementaryStream(astits.PMTElementaryStream{
		ElementaryPID: 0x100,
		StreamType:    astits.StreamTypeH264Video,
	})
	assert.Equal(t, nil, err)
	mx.SetPCRPID(0x100)

	aus := [][]byte{join(sps, pps, idr), p1, p2}
	for i, au := range aus {
		_, err = mx.WriteData(&astits.MuxerData{
			PID: 0x100,
			AdaptationField: &astits.PacketAdaptationField{
				RandomAccessIndicator: i == 0,
			},
			PES: &astits.PESData{
				Header: &astits.PESHeader{
					OptionalHeader: &astits.PESOptionalHeader{
						MarkerBits:      2,
						PTSDTSIndicator: astits.PTSDTSIndicatorOnlyPTS,
						PTS:             &astits.ClockReference{Base: int64(i * 3600)},
					},
					StreamID: 224,
				},
				Data: au,
			},
		})
		assert.Equal(t, nil, err)
	}

	pkts := readAll(t, demux.NewTsDemuxer(bytes.NewReader(buf.Bytes())))
	assert.Equal(t, len(aus), len(pkts))
	for i, pkt := range pkts {
		assert.Equal(t, 0x100, pkt.StreamIndex)
		assert.Equal(t, demux.CodecTypeAvc, pkt.CodecType)
		assert.Equal(t, aus[i], pkt.Payload)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "test.h264")
	err := os.WriteFile(filename, join(sps, pps, idr, p1), 0644)
	assert.Equal(t, nil, err)

	d, err := demux.Open(filename)
	assert.Equal(t, nil, err)
	_, ok := d.(*demux.AnnexbDemuxer)
	assert.Equal(t, true, ok)
	assert.Equal(t, 2, len(readAll(t, d)))

	_, err = demux.Open(filepath.Join(dir, "notexist.h264"))
	assert.Equal(t, true, errors.Is(err, base.ErrIngestionFailure))
	_, err = demux.Open(filepath.Join(dir, "notexist.ts"))
	assert.Equal(t, true, errors.Is(err, base.ErrIngestionFailure))
}
