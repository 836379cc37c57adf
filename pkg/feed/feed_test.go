// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package feed_test

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/q191201771/esfeeder/pkg/base"
	"github.com/q191201771/esfeeder/pkg/demux"
	"github.com/q191201771/esfeeder/pkg/feed"
	"github.com/q191201771/naza/pkg/assert"
)

var (
	goldenSps, _ = hex.DecodeString("67640020acd940c029b011000003000100000300320f183196")
	goldenPps, _ = hex.DecodeString("68ebecb22c")

	startCode = []byte{0, 0, 0, 1}

	// 4+25+4+5
	goldenBlob     = join(startCode, goldenSps, startCode, goldenPps)
	goldenBlobLen  = 38
	goldenKeyframe = join(startCode, []byte{0x65, 0x88, 0x84, 0x00, 0x33})
	goldenFrame    = join(startCode, []byte{0x41, 0x9a, 0x00, 0x11})
)

func join(bs ...[]byte) []byte {
	var out []byte
	for _, b := range bs {
		out = append(out, b...)
	}
	return out
}

type testSink struct {
	frames   []feed.Frame
	eosCount int
	err      error
}

func (s *testSink) OnFrame(frame feed.Frame) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *testSink) OnEndOfStream() {
	s.eosCount++
}

// 'I'关键帧，'P'非关键帧，每帧末尾带上序号方便区分
func newTestSource(t *testing.T, pattern string) (*feed.ParamSetCache, *feed.FrameStore) {
	cache := feed.NewParamSetCache(goldenBlobLen)
	_, err := cache.Capture(join(goldenBlob, goldenKeyframe))
	assert.Equal(t, nil, err)

	store := feed.NewFrameStore()
	for i, c := range pattern {
		var payload []byte
		switch c {
		case 'I':
			payload = join(goldenKeyframe, []byte{byte(i)})
		case 'P':
			payload = join(goldenFrame, []byte{byte(i)})
		}
		unit, err := feed.NewAccessUnit(payload)
		assert.Equal(t, nil, err)
		assert.Equal(t, nil, store.Append(unit))
	}
	store.Freeze()
	return cache, store
}

func TestFeeder(t *testing.T) {
	cache, store := newTestSource(t, "PIPPI")
	sink := &testSink{}
	f := feed.NewFeeder(cache, store.NewCursor(), sink)
	assert.Equal(t, feed.StateAwaitingFirstKeyframe, f.State())

	for i := 0; i < 4; i++ {
		assert.Equal(t, nil, f.OnNeedData())
		assert.Equal(t, feed.StateStreaming, f.State())
	}

	expected := []struct {
		isKeyframe bool
		timestamp  time.Duration
		index      int
	}{
		{true, 0, 1},
		{false, 40 * time.Millisecond, 2},
		{false, 80 * time.Millisecond, 3},
		{true, 120 * time.Millisecond, 4},
	}
	assert.Equal(t, len(expected), len(sink.frames))
	for i, e := range expected {
		frame := sink.frames[i]
		assert.Equal(t, e.isKeyframe, frame.IsKeyframe)
		assert.Equal(t, e.timestamp, frame.Timestamp)
		unit := store.At(e.index)
		if e.isKeyframe {
			assert.Equal(t, goldenBlobLen+unit.Size(), len(frame.Payload))
			assert.Equal(t, goldenBlob, frame.Payload[:goldenBlobLen])
			assert.Equal(t, unit.Payload, frame.Payload[goldenBlobLen:])
		} else {
			assert.Equal(t, unit.Payload, frame.Payload)
		}
	}
	assert.Equal(t, 0, sink.eosCount)

	// 数据耗尽，之后每次拉取都只回调EOS
	assert.Equal(t, nil, f.OnNeedData())
	assert.Equal(t, feed.StateDrained, f.State())
	assert.Equal(t, 1, sink.eosCount)
	assert.Equal(t, nil, f.OnNeedData())
	assert.Equal(t, feed.StateDrained, f.State())
	assert.Equal(t, 2, sink.eosCount)
	assert.Equal(t, 4, len(sink.frames))

	stat := f.Stat()
	assert.Equal(t, uint64(4), stat.EmittedFrames)
	assert.Equal(t, uint64(2), stat.EmittedKeyframes)
	assert.Equal(t, uint64(1), stat.DroppedAtGating)
	assert.Equal(t, 120*time.Millisecond, stat.LastTimestamp)
	assert.Equal(t, "Drained", stat.State)
	assert.Equal(t, 0, stat.Remaining)

	// FrameStore本身没有被消费
	assert.Equal(t, 5, store.Len())
}

func TestFeeder_LeadingNonKeyframes(t *testing.T) {
	cache, store := newTestSource(t, "PPPPIP")
	sink := &testSink{}
	f := feed.NewFeeder(cache, store.NewCursor(), sink)
	assert.Equal(t, nil, f.OnNeedData())
	assert.Equal(t, 1, len(sink.frames))
	assert.Equal(t, true, sink.frames[0].IsKeyframe)
	assert.Equal(t, time.Duration(0), sink.frames[0].Timestamp)
	assert.Equal(t, true, bytes.HasPrefix(sink.frames[0].Payload, goldenBlob))
	assert.Equal(t, uint64(4), f.Stat().DroppedAtGating)
}

func TestFeeder_NoKeyframe(t *testing.T) {
	cache, store := newTestSource(t, "PPP")
	sink := &testSink{}
	f := feed.NewFeeder(cache, store.NewCursor(), sink)
	assert.Equal(t, nil, f.OnNeedData())
	assert.Equal(t, feed.StateDrained, f.State())
	assert.Equal(t, 0, len(sink.frames))
	assert.Equal(t, 1, sink.eosCount)
	assert.Equal(t, uint64(3), f.Stat().DroppedAtGating)

	assert.Equal(t, nil, f.OnNeedData())
	assert.Equal(t, 2, sink.eosCount)
	assert.Equal(t, 0, len(sink.frames))
}

func TestFeeder_EmptyStore(t *testing.T) {
	store := feed.NewFrameStore()
	store.Freeze()
	sink := &testSink{}
	f := feed.NewFeeder(feed.NewParamSetCache(goldenBlobLen), store.NewCursor(), sink)
	assert.Equal(t, nil, f.OnNeedData())
	assert.Equal(t, feed.StateDrained, f.State())
	assert.Equal(t, 1, sink.eosCount)
}

func TestFeeder_CacheNotInitialized(t *testing.T) {
	_, store := newTestSource(t, "IP")
	sink := &testSink{}
	f := feed.NewFeeder(feed.NewParamSetCache(goldenBlobLen), store.NewCursor(), sink)
	err := f.OnNeedData()
	assert.Equal(t, true, errors.Is(err, base.ErrNotInitialized))
	assert.Equal(t, feed.StateDrained, f.State())
	assert.Equal(t, 0, len(sink.frames))
}

func TestFeeder_SinkError(t *testing.T) {
	cache, store := newTestSource(t, "IP")
	errBroken := errors.New("broken pipe")
	sink := &testSink{err: errBroken}
	f := feed.NewFeeder(cache, store.NewCursor(), sink)
	err := f.OnNeedData()
	assert.Equal(t, true, errors.Is(err, errBroken))
	assert.Equal(t, feed.StateDrained, f.State())

	sink.err = nil
	assert.Equal(t, nil, f.OnNeedData())
	assert.Equal(t, 0, len(sink.frames))
	assert.Equal(t, 1, sink.eosCount)
}

func TestFeeder_EnoughData(t *testing.T) {
	cache, store := newTestSource(t, "IPP")
	sink := &testSink{}
	f := feed.NewFeeder(cache, store.NewCursor(), sink)
	assert.Equal(t, false, f.IsPaused())
	f.OnEnoughData()
	assert.Equal(t, true, f.IsPaused())
	// 不会主动输出
	assert.Equal(t, 0, len(sink.frames))
	assert.Equal(t, nil, f.OnNeedData())
	assert.Equal(t, false, f.IsPaused())
	assert.Equal(t, 1, len(sink.frames))
}

func TestFeeder_FrameRate(t *testing.T) {
	cache, store := newTestSource(t, "IPPP")
	sink := &testSink{}
	f := feed.NewFeeder(cache, store.NewCursor(), sink, func(option *feed.FeederOption) {
		option.FrameRate = 30
	})
	assert.Equal(t, time.Second/30, f.FrameDuration())
	for i := 0; i < 4; i++ {
		assert.Equal(t, nil, f.OnNeedData())
	}
	for i, frame := range sink.frames {
		assert.Equal(t, time.Duration(i)*(time.Second/30), frame.Timestamp)
	}

	f = feed.NewFeeder(cache, store.NewCursor(), sink, func(option *feed.FeederOption) {
		option.FrameRate = 0
	})
	assert.Equal(t, 40*time.Millisecond, f.FrameDuration())
}

func TestFeeder_SessionIsolation(t *testing.T) {
	cache, store := newTestSource(t, "PIPPI")
	sink1 := &testSink{}
	sink2 := &testSink{}
	f1 := feed.NewFeeder(cache, store.NewCursor(), sink1)
	f2 := feed.NewFeeder(cache, store.NewCursor(), sink2)

	for i := 0; i < 5; i++ {
		assert.Equal(t, nil, f1.OnNeedData())
	}
	assert.Equal(t, feed.StateDrained, f1.State())
	assert.Equal(t, feed.StateAwaitingFirstKeyframe, f2.State())

	for i := 0; i < 5; i++ {
		assert.Equal(t, nil, f2.OnNeedData())
	}
	assert.Equal(t, 4, len(sink1.frames))
	assert.Equal(t, 4, len(sink2.frames))
	for i := range sink1.frames {
		assert.Equal(t, sink1.frames[i].Payload, sink2.frames[i].Payload)
		assert.Equal(t, sink1.frames[i].Timestamp, sink2.frames[i].Timestamp)
	}
}

func TestFeeder_ConcurrentNeedData(t *testing.T) {
	cache, store := newTestSource(t, "I"+strings.Repeat("P", 200))
	sink := &testSink{}
	f := feed.NewFeeder(cache, store.NewCursor(), sink)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 40; j++ {
				assert.Equal(t, nil, f.OnNeedData())
			}
		}()
	}
	wg.Wait()

	// 8*40次请求，多出来的请求只会重复回调OnEndOfStream
	assert.Equal(t, feed.StateDrained, f.State())
	assert.Equal(t, store.Len(), len(sink.frames))
	assert.Equal(t, 8*40-store.Len(), sink.eosCount)
	for i, frame := range sink.frames {
		assert.Equal(t, time.Duration(i)*f.FrameDuration(), frame.Timestamp)
		assert.Equal(t, i == 0, frame.IsKeyframe)
		if i > 0 {
			assert.Equal(t, store.At(i).Payload, frame.Payload)
		}
	}
	assert.Equal(t, uint64(store.Len()), f.Stat().EmittedFrames)
}

func TestParamSetCache(t *testing.T) {
	cache := feed.NewParamSetCache(goldenBlobLen)
	assert.Equal(t, goldenBlobLen, cache.Len())
	_, err := cache.Get()
	assert.Equal(t, true, errors.Is(err, base.ErrNotInitialized))
	sps, pps := cache.SpsPps()
	assert.Equal(t, true, sps == nil && pps == nil)

	// 长度不足
	_, err = cache.Capture(goldenBlob)
	assert.Equal(t, true, errors.Is(err, base.ErrIngestionFailure))

	first := join(goldenBlob, goldenKeyframe)
	rest, err := cache.Capture(first)
	assert.Equal(t, nil, err)
	assert.Equal(t, goldenKeyframe, rest)

	blob, err := cache.Get()
	assert.Equal(t, nil, err)
	assert.Equal(t, goldenBlob, blob)

	// 拷贝，与输入不共享内存
	first[4] = 0xff
	blob, _ = cache.Get()
	assert.Equal(t, goldenBlob, blob)

	_, err = cache.Capture(first)
	assert.Equal(t, true, errors.Is(err, base.ErrParamSetCaptured))

	sps, pps = cache.SpsPps()
	assert.Equal(t, goldenSps, sps)
	assert.Equal(t, goldenPps, pps)
}

func TestFrameStore(t *testing.T) {
	store := feed.NewFrameStore()
	unit, err := feed.NewAccessUnit(goldenKeyframe)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, unit.IsKeyframe)
	assert.Equal(t, nil, store.Append(unit))
	unit, err = feed.NewAccessUnit(goldenFrame)
	assert.Equal(t, nil, err)
	assert.Equal(t, false, unit.IsKeyframe)
	assert.Equal(t, nil, store.Append(unit))
	store.Freeze()
	assert.Equal(t, true, errors.Is(store.Append(unit), base.ErrFrameStoreFrozen))
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 1, store.KeyframeCount())

	c := store.NewCursor()
	assert.Equal(t, 2, c.Remaining())
	front, ok := c.PeekFront()
	assert.Equal(t, true, ok)
	assert.Equal(t, true, front.IsKeyframe)
	assert.Equal(t, 2, c.Remaining())
	front, ok = c.PopFront()
	assert.Equal(t, true, ok)
	assert.Equal(t, goldenKeyframe, front.Payload)
	front, ok = c.PopFront()
	assert.Equal(t, true, ok)
	assert.Equal(t, goldenFrame, front.Payload)
	assert.Equal(t, true, c.IsEmpty())
	_, ok = c.PopFront()
	assert.Equal(t, false, ok)
	_, ok = c.PeekFront()
	assert.Equal(t, false, ok)
	assert.Equal(t, 0, c.Remaining())

	_, err = feed.NewAccessUnit([]byte{0, 0, 0, 1})
	assert.Equal(t, true, errors.Is(err, base.ErrMalformedUnit))
}

type testDemuxer struct {
	pkts []demux.Packet
	err  error
}

func (d *testDemuxer) ReadPacket() (demux.Packet, error) {
	if len(d.pkts) == 0 {
		if d.err != nil {
			return demux.Packet{}, d.err
		}
		return demux.Packet{}, io.EOF
	}
	pkt := d.pkts[0]
	d.pkts = d.pkts[1:]
	return pkt, nil
}

func (d *testDemuxer) Close() error {
	return nil
}

func TestIngest(t *testing.T) {
	d := &testDemuxer{
		pkts: []demux.Packet{
			{StreamIndex: 1, CodecType: demux.CodecTypeAac, Payload: []byte{0xff, 0xf1}},
			{StreamIndex: 0, CodecType: demux.CodecTypeAvc, Payload: join(goldenBlob, goldenKeyframe)},
			{StreamIndex: 0, CodecType: demux.CodecTypeAvc, Payload: []byte{0, 0, 0, 1}},
			{StreamIndex: 0, CodecType: demux.CodecTypeAvc, Payload: goldenFrame},
			{StreamIndex: 2, CodecType: demux.CodecTypeAvc, Payload: goldenFrame},
			{StreamIndex: 0, CodecType: demux.CodecTypeAvc, Payload: goldenKeyframe},
		},
	}
	source, err := feed.Ingest(d, goldenBlobLen)
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, source.StreamIndex)
	assert.Equal(t, 1, source.DroppedCount)
	assert.Equal(t, 3, source.Store.Len())
	assert.Equal(t, true, source.Store.IsFrozen())
	assert.Equal(t, goldenKeyframe, source.Store.At(0).Payload)
	assert.Equal(t, true, source.Store.At(0).IsKeyframe)
	assert.Equal(t, false, source.Store.At(1).IsKeyframe)
	blob, err := source.ParamSetCache.Get()
	assert.Equal(t, nil, err)
	assert.Equal(t, goldenBlob, blob)

	sink := &testSink{}
	f := source.NewFeeder(sink)
	for i := 0; i < 4; i++ {
		assert.Equal(t, nil, f.OnNeedData())
	}
	assert.Equal(t, 3, len(sink.frames))
	assert.Equal(t, join(goldenBlob, goldenKeyframe), sink.frames[0].Payload)
	assert.Equal(t, 1, sink.eosCount)
}

func TestIngest_Failure(t *testing.T) {
	// 读包出错
	_, err := feed.Ingest(&testDemuxer{err: errors.New("bad file")}, goldenBlobLen)
	assert.Equal(t, true, errors.Is(err, base.ErrIngestionFailure))

	// 没有视频流
	_, err = feed.Ingest(&testDemuxer{}, goldenBlobLen)
	assert.Equal(t, true, errors.Is(err, base.ErrIngestionFailure))

	// 第一帧比参数集还短
	_, err = feed.Ingest(&testDemuxer{pkts: []demux.Packet{
		{CodecType: demux.CodecTypeAvc, Payload: goldenKeyframe},
	}}, goldenBlobLen)
	assert.Equal(t, true, errors.Is(err, base.ErrIngestionFailure))

	// 所有帧都格式错误
	_, err = feed.Ingest(&testDemuxer{pkts: []demux.Packet{
		{CodecType: demux.CodecTypeAvc, Payload: join(goldenBlob, []byte{0, 0})},
	}}, goldenBlobLen)
	assert.Equal(t, true, errors.Is(err, base.ErrIngestionFailure))
}
