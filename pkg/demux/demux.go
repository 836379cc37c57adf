// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package demux

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/q191201771/esfeeder/pkg/base"
	"github.com/q191201771/naza/pkg/nazalog"
)

var Log = nazalog.GetGlobalLogger()

type CodecType int

const (
	CodecTypeUnknown CodecType = iota
	CodecTypeAvc
	CodecTypeAac
)

func (c CodecType) ReadableString() string {
	switch c {
	case CodecTypeAvc:
		return "H264"
	case CodecTypeAac:
		return "AAC"
	}
	return "unknown"
}

// Packet 解复用得到的一个数据包
//
// 对于h264，Payload是一个Annex-B格式的access unit
type Packet struct {
	StreamIndex int
	CodecType   CodecType
	Payload     []byte
}

// Demuxer 读完所有数据后返回 io.EOF
type Demuxer interface {
	ReadPacket() (Packet, error)
	Close() error
}

// Open 根据文件后缀名选择解复用器，.ts和.m2ts使用TsDemuxer，其他按h264裸流处理
func Open(filename string) (Demuxer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".ts", ".m2ts":
		fp, err := os.Open(filename)
		if err != nil {
			return nil, base.NewErrIngestionFailure("open file failed", err)
		}
		Log.Infof("open ts file. filename=%s", filename)
		return NewTsDemuxer(fp), nil
	}

	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, base.NewErrIngestionFailure("read file failed", err)
	}
	Log.Infof("open annexb file. filename=%s, size=%d", filename, len(b))
	return NewAnnexbDemuxer(b), nil
}
