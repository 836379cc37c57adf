// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtsp

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/q191201771/esfeeder/pkg/base"
	"github.com/q191201771/esfeeder/pkg/feed"
	"github.com/q191201771/esfeeder/pkg/rtprtcp"
	"github.com/q191201771/esfeeder/pkg/sdp"
	"github.com/q191201771/naza/pkg/nazaatomic"
)

// FrameSource SubSession拉取数据的数据源，也即feed.Feeder
type FrameSource interface {
	OnNeedData() error
	OnEnoughData()
}

type SubSessionOption struct {
	WriteQueueSize    int
	MaxRtpPayloadSize int
}

var defaultSubSessionOption = SubSessionOption{
	WriteQueueSize:    DefaultWriteQueueSize,
	MaxRtpPayloadSize: 1200,
}

type ModSubSessionOption func(option *SubSessionOption)

type SubSessionStat struct {
	SessionId     string    `json:"session_id"`
	RemoteAddr    string    `json:"remote_addr"`
	Url           string    `json:"url"`
	StartTime     time.Time `json:"start_time"`
	WroteFrames   uint32    `json:"wrote_frames"`
	WroteBytesSum uint64    `json:"wrote_bytes_sum"`
	WriteBitrate  int       `json:"write_bitrate_kbits"`
	EndOfStream   bool      `json:"end_of_stream"`
}

// SubSession 一个拉流的客户端
//
// 实现了 feed.Sink 。PLAY之后启动两个协程：
// 拉取协程按时间戳节奏调用数据源的OnNeedData，发送队列满时调用OnEnoughData；
// 发送协程从队列中取帧，打包成rtp后通过RTSP TCP连接发送。
type SubSession struct {
	uniqueKey  string
	urlCtx     base.UrlContext
	cmdSession *ServerCommandSession
	option     SubSessionOption
	sessionId  string
	packer     *rtprtcp.RtpPacker
	firstSeq   uint16

	mu          sync.Mutex
	rtpChannel  int
	rtcpChannel int
	setupDone   bool
	source      FrameSource
	startTime   time.Time

	started     nazaatomic.Bool
	eos         nazaatomic.Bool
	wroteFrames nazaatomic.Uint32

	// 只在拉取协程中访问
	lastTimestamp time.Duration

	frameCh     chan feed.Frame
	eosOnce     sync.Once
	disposeCh   chan struct{}
	disposeOnce sync.Once
}

func NewSubSession(urlCtx base.UrlContext, cmdSession *ServerCommandSession, option SubSessionOption) *SubSession {
	uk := base.GenUkRtspSubSession()
	if option.WriteQueueSize <= 0 {
		option.WriteQueueSize = DefaultWriteQueueSize
	}
	s := &SubSession{
		uniqueKey:  uk,
		urlCtx:     urlCtx,
		cmdSession: cmdSession,
		option:     option,
		sessionId:  uk,
		packer: rtprtcp.NewRtpPacker(rtprtcp.NewRtpPackerPayloadAvc(), rtprtcp.RtpClockRateVideo, rtprtcp.GenSsrc(), func(o *rtprtcp.RtpPackerOption) {
			o.MaxPayloadSize = option.MaxRtpPayloadSize
		}),
		frameCh:   make(chan feed.Frame, option.WriteQueueSize),
		disposeCh: make(chan struct{}),
	}
	s.firstSeq = s.packer.NextSeq()
	Log.Infof("[%s] lifecycle new rtsp SubSession. session=%p, url=%s", uk, s, urlCtx.Url)
	return s
}

// SetupWithChannel
//
// @param uri: SETUP请求中的track地址
func (s *SubSession) SetupWithChannel(uri string, rtpChannel, rtcpChannel int) error {
	urlCtx, err := base.ParseRtspUrl(uri)
	if err != nil {
		return err
	}
	if urlCtx.LastItemOfPath != sdp.VideoControl && urlCtx.PresentationPath("") != s.Path() {
		return fmt.Errorf("%w. unknown track. uri=%s", base.ErrRtsp, uri)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rtpChannel = rtpChannel
	s.rtcpChannel = rtcpChannel
	s.setupDone = true
	Log.Debugf("[%s] setup. rtp_channel=%d, rtcp_channel=%d", s.uniqueKey, rtpChannel, rtcpChannel)
	return nil
}

// AttachSource 在 ServerObserver.OnNewRtspSubSessionPlay 中调用
func (s *SubSession) AttachSource(source FrameSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = source
}

// Start 开始发送数据
func (s *SubSession) Start() error {
	s.mu.Lock()
	source := s.source
	s.mu.Unlock()
	if source == nil {
		return base.ErrRtspFeederNotAttached
	}
	if s.started.Load() {
		return nil
	}
	s.started.Store(true)

	s.mu.Lock()
	s.startTime = Clock.Now()
	s.mu.Unlock()

	Log.Infof("[%s] start. first_seq=%d, ssrc=%08X", s.uniqueKey, s.firstSeq, s.packer.Ssrc())
	go s.runWriteLoop()
	go s.runPumpLoop(source)
	return nil
}

// OnFrame feed.Sink ，在拉取协程中被回调
func (s *SubSession) OnFrame(frame feed.Frame) error {
	select {
	case <-s.disposeCh:
		return base.ErrRtspClosedByObserver
	default:
	}

	s.lastTimestamp = frame.Timestamp
	select {
	case s.frameCh <- frame:
		return nil
	default:
		// 拉取前已经检查过队列长度，正常情况下不会走到这里
		return fmt.Errorf("%w. write queue full", base.ErrRtsp)
	}
}

// OnEndOfStream feed.Sink
func (s *SubSession) OnEndOfStream() {
	s.eosOnce.Do(func() {
		Log.Infof("[%s] end of stream.", s.uniqueKey)
		s.eos.Store(true)
		close(s.frameCh)
	})
}

func (s *SubSession) Dispose() {
	s.disposeOnce.Do(func() {
		Log.Infof("[%s] lifecycle dispose rtsp SubSession. session=%p", s.uniqueKey, s)
		close(s.disposeCh)
	})
}

func (s *SubSession) UniqueKey() string {
	return s.uniqueKey
}

func (s *SubSession) Url() string {
	return s.urlCtx.Url
}

// Path 请求的流路径，不包含track
func (s *SubSession) Path() string {
	return s.urlCtx.PresentationPath(sdp.VideoControl)
}

func (s *SubSession) SessionId() string {
	return s.sessionId
}

func (s *SubSession) Ssrc() uint32 {
	return s.packer.Ssrc()
}

func (s *SubSession) RemoteAddr() string {
	return s.cmdSession.RemoteAddr()
}

func (s *SubSession) IsSetup() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setupDone
}

func (s *SubSession) IsStarted() bool {
	return s.started.Load()
}

func (s *SubSession) IsEndOfStream() bool {
	return s.eos.Load()
}

// RtpInfo PLAY回复中的RTP-Info
func (s *SubSession) RtpInfo() string {
	u := strings.TrimRight(s.urlCtx.Url, "/")
	if !strings.HasSuffix(u, "/"+sdp.VideoControl) {
		u += "/" + sdp.VideoControl
	}
	return fmt.Sprintf("url=%s;seq=%d;rtptime=0", u, s.firstSeq)
}

func (s *SubSession) GetStat() SubSessionStat {
	s.mu.Lock()
	startTime := s.startTime
	s.mu.Unlock()
	return SubSessionStat{
		SessionId:     s.sessionId,
		RemoteAddr:    s.RemoteAddr(),
		Url:           s.urlCtx.Url,
		StartTime:     startTime,
		WroteFrames:   s.wroteFrames.Load(),
		WroteBytesSum: s.cmdSession.WroteBytesSum(),
		WriteBitrate:  s.cmdSession.WriteBitrate(),
		EndOfStream:   s.eos.Load(),
	}
}

func (s *SubSession) checkSessionId(v string) bool {
	// 比如 Session: 1A2B3C;timeout=60
	if v == "" {
		return true
	}
	id := strings.TrimSpace(strings.Split(v, ";")[0])
	return id == s.sessionId
}

// ----- private -------------------------------------------------------------------------------------------------------

func (s *SubSession) runPumpLoop(source FrameSource) {
	startTime := Clock.Now()
	for {
		select {
		case <-s.disposeCh:
			return
		default:
		}
		if s.eos.Load() {
			return
		}

		if len(s.frameCh) >= cap(s.frameCh) {
			source.OnEnoughData()
			Clock.Sleep(pumpBackoffInterval)
			continue
		}

		if err := source.OnNeedData(); err != nil {
			Log.Errorf("[%s] pull frame failed. err=%+v", s.uniqueKey, err)
			_ = s.cmdSession.Dispose()
			return
		}

		// 按时间戳控制发送节奏
		if d := s.lastTimestamp - Clock.Now().Sub(startTime); d > 0 {
			Clock.Sleep(d)
		}
	}
}

func (s *SubSession) runWriteLoop() {
	s.mu.Lock()
	rtpChannel, rtcpChannel := s.rtpChannel, s.rtcpChannel
	s.mu.Unlock()

	for {
		select {
		case <-s.disposeCh:
			return
		case frame, ok := <-s.frameCh:
			if !ok {
				// 数据耗尽，通知对端
				if err := s.cmdSession.WriteInterleavedPacket(rtprtcp.PackRtcpBye(s.packer.Ssrc()), rtcpChannel); err != nil {
					Log.Warnf("[%s] write rtcp bye failed. err=%+v", s.uniqueKey, err)
				}
				return
			}
			for _, pkt := range s.packer.Pack(frame.Payload, frame.Timestamp) {
				if err := s.cmdSession.WriteInterleavedPacket(pkt.Raw, rtpChannel); err != nil {
					Log.Errorf("[%s] write rtp packet failed. err=%+v", s.uniqueKey, err)
					_ = s.cmdSession.Dispose()
					return
				}
			}
			s.wroteFrames.Add(1)
		}
	}
}
