// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package feed

import (
	"errors"
	"fmt"
	"io"

	"github.com/q191201771/esfeeder/pkg/base"
	"github.com/q191201771/esfeeder/pkg/demux"
)

// Source 入库完成后的只读数据源，所有session共享
type Source struct {
	ParamSetCache *ParamSetCache
	Store         *FrameStore

	// DroppedCount 入库时因为格式错误被丢弃的帧数
	DroppedCount int
	StreamIndex  int
}

// Ingest 把<demuxer>中的数据一次性全部读完，构建FrameStore
//
// 只使用第一个h264流。第一帧开头的param set长度数据被缓存，剩余部分作为第一帧入库。
// 入库结束后FrameStore被冻结。
func Ingest(demuxer demux.Demuxer, paramSetLen int) (*Source, error) {
	source := &Source{
		ParamSetCache: NewParamSetCache(paramSetLen),
		Store:         NewFrameStore(),
		StreamIndex:   -1,
	}

	for {
		pkt, err := demuxer.ReadPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, base.NewErrIngestionFailure("read packet failed", err)
		}

		if pkt.CodecType != demux.CodecTypeAvc {
			continue
		}
		if source.StreamIndex == -1 {
			source.StreamIndex = pkt.StreamIndex
			Log.Infof("ingest use video stream. index=%d", pkt.StreamIndex)
		} else if pkt.StreamIndex != source.StreamIndex {
			continue
		}

		payload := pkt.Payload
		if _, err := source.ParamSetCache.Get(); err != nil {
			if payload, err = source.ParamSetCache.Capture(payload); err != nil {
				return nil, err
			}
		}

		unit, err := NewAccessUnit(payload)
		if err != nil {
			Log.Warnf("drop malformed unit. index=%d, err=%+v", source.Store.Len()+source.DroppedCount, err)
			source.DroppedCount++
			continue
		}
		if err = source.Store.Append(unit); err != nil {
			return nil, err
		}
	}

	if source.StreamIndex == -1 {
		return nil, base.NewErrIngestionFailure("no h264 stream", nil)
	}
	if source.Store.Len() == 0 {
		return nil, base.NewErrIngestionFailure(fmt.Sprintf("no usable access unit. dropped=%d", source.DroppedCount), nil)
	}

	source.Store.Freeze()
	Log.Infof("ingest done. units=%d, keyframes=%d, dropped=%d, param_set_len=%d",
		source.Store.Len(), source.Store.KeyframeCount(), source.DroppedCount, source.ParamSetCache.Len())
	return source, nil
}

// NewFeeder 为一个session创建Feeder，每次调用都使用新的Cursor
func (s *Source) NewFeeder(sink Sink, modOptions ...ModFeederOption) *Feeder {
	return NewFeeder(s.ParamSetCache, s.Store.NewCursor(), sink, modOptions...)
}
