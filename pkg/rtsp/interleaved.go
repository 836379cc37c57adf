// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtsp

import (
	"bufio"
	"io"

	"github.com/q191201771/naza/pkg/bele"
)

// rfc2326 10.12 Embedded (Interleaved) Binary Data

func readInterleaved(r *bufio.Reader) (isInterleaved bool, packet []byte, channel uint8, err error) {
	flag, err := r.ReadByte()
	if err != nil {
		return false, nil, 0, err
	}

	if flag != Interleaved {
		_ = r.UnreadByte()
		return false, nil, 0, nil
	}

	channel, err = r.ReadByte()
	if err != nil {
		return false, nil, 0, err
	}
	lenBuf := make([]byte, 2)
	if _, err = io.ReadFull(r, lenBuf); err != nil {
		return false, nil, 0, err
	}
	packet = make([]byte, int(bele.BeUint16(lenBuf)))
	if _, err = io.ReadFull(r, packet); err != nil {
		return false, nil, 0, err
	}

	return true, packet, channel, nil
}

func packInterleaved(channel int, packet []byte) []byte {
	ret := make([]byte, 4+len(packet))
	ret[0] = Interleaved
	ret[1] = uint8(channel)
	bele.BePutUint16(ret[2:], uint16(len(packet)))
	copy(ret[4:], packet)
	return ret
}
