// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"context"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/q191201771/esfeeder/pkg/avc"
	"github.com/q191201771/esfeeder/pkg/base"
	"github.com/q191201771/esfeeder/pkg/demux"
	"github.com/q191201771/esfeeder/pkg/feed"
	"github.com/q191201771/esfeeder/pkg/rtsp"
	"github.com/q191201771/esfeeder/pkg/sdp"
	"github.com/q191201771/naza/pkg/nazaerrors"
	"golang.org/x/sync/errgroup"
)

type ServerManager struct {
	config *Config

	registry *prometheus.Registry
	metrics  *Metrics

	source *feed.Source
	spsCtx avc.Context
	sdp    []byte

	rtspServer    *rtsp.Server
	httpApiServer *HttpApiServer

	mu          sync.Mutex
	sessions    map[string]*sessionEntry
	disposed    bool
	disposeOnce sync.Once
}

type sessionEntry struct {
	sub    *rtsp.SubSession
	feeder *feed.Feeder
}

func NewServerManager(config *Config) *ServerManager {
	registry := prometheus.NewRegistry()
	sm := &ServerManager{
		config:   config,
		registry: registry,
		metrics:  NewMetrics(registry),
		sessions: make(map[string]*sessionEntry),
	}
	Log.Infof("lifecycle new server manager. sm=%p", sm)
	return sm
}

// Init 入库源文件，并开始监听
//
// 入库失败时返回错误，不会开启任何监听
func (sm *ServerManager) Init() error {
	filename := sm.config.SourceConfig.Filename
	if filename == "" {
		return base.NewErrIngestionFailure("source filename not set", nil)
	}

	demuxer, err := demux.Open(filename)
	if err != nil {
		return err
	}
	source, err := feed.Ingest(demuxer, sm.config.SourceConfig.ParamSetLen)
	_ = demuxer.Close()
	if err != nil {
		return err
	}
	sm.source = source
	sm.metrics.observeSource(source)

	sps, pps := source.ParamSetCache.SpsPps()
	if err = avc.ParseSps(sps, &sm.spsCtx); err != nil {
		Log.Warnf("parse sps failed. err=%+v", err)
	} else {
		Log.Infof("sps info. profile=%d, level=%d, width=%d, height=%d",
			sm.spsCtx.Profile, sm.spsCtx.Level, sm.spsCtx.Width, sm.spsCtx.Height)
		sc := sm.config.StreamConfig
		if int(sm.spsCtx.Width) != sc.Width || int(sm.spsCtx.Height) != sc.Height {
			Log.Warnf("declared frame size mismatch with sps. declared=%dx%d, sps=%dx%d",
				sc.Width, sc.Height, sm.spsCtx.Width, sm.spsCtx.Height)
		}
	}

	if sm.sdp, err = sdp.Pack(sdp.VideoInfo{
		Sps:       sps,
		Pps:       pps,
		Width:     sm.config.StreamConfig.Width,
		Height:    sm.config.StreamConfig.Height,
		FrameRate: sm.config.StreamConfig.FrameRate,
	}); err != nil {
		return nazaerrors.Wrap(err)
	}

	sm.rtspServer = rtsp.NewServer(sm.config.RtspConfig.Addr, sm, func(option *rtsp.SubSessionOption) {
		option.WriteQueueSize = sm.config.RtspConfig.WriteQueueSize
	})
	if err = sm.rtspServer.Listen(); err != nil {
		return err
	}

	if sm.config.HttpApiConfig.Enable {
		sm.httpApiServer = NewHttpApiServer(sm.config.HttpApiConfig.Addr, sm)
		if err = sm.httpApiServer.Listen(); err != nil {
			sm.rtspServer.Dispose()
			return err
		}
	}

	Log.Infof("stream ready at rtsp://%s%s", sm.rtspServer.Addr(), sm.config.RtspConfig.Mount)
	return nil
}

// RunLoop 阻塞直到<ctx>结束，或者某个server出错
func (sm *ServerManager) RunLoop(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sm.checkLoopErr(sm.rtspServer.RunLoop())
	})
	if sm.httpApiServer != nil {
		g.Go(func() error {
			return sm.checkLoopErr(sm.httpApiServer.RunLoop())
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		sm.Dispose()
		return nil
	})

	return g.Wait()
}

func (sm *ServerManager) Dispose() {
	sm.disposeOnce.Do(func() {
		Log.Infof("lifecycle dispose server manager.")
		sm.mu.Lock()
		sm.disposed = true
		sm.mu.Unlock()

		if sm.rtspServer != nil {
			sm.rtspServer.Dispose()
		}
		if sm.httpApiServer != nil {
			sm.httpApiServer.Dispose()
		}
	})
}

// 主动关闭导致的监听退出不算错误
func (sm *ServerManager) checkLoopErr(err error) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.disposed {
		return nil
	}
	return err
}

func (sm *ServerManager) RtspAddr() string {
	if sm.rtspServer == nil {
		return sm.config.RtspConfig.Addr
	}
	return sm.rtspServer.Addr()
}

func (sm *ServerManager) HttpApiAddr() string {
	if sm.httpApiServer == nil {
		return sm.config.HttpApiConfig.Addr
	}
	return sm.httpApiServer.Addr()
}

// ----- implement rtsp.ServerObserver interface -----------------------------------------------------------------------

func (sm *ServerManager) OnNewRtspSubSessionDescribe(session *rtsp.SubSession) (ok bool, sdp []byte) {
	if session.Path() != sm.config.RtspConfig.Mount {
		Log.Warnf("[%s] mount not found. path=%s, mount=%s", session.UniqueKey(), session.Path(), sm.config.RtspConfig.Mount)
		return false, nil
	}
	return true, sm.sdp
}

// OnNewRtspSubSessionPlay 每个session使用独立的Feeder和游标，共享同一份只读数据
func (sm *ServerManager) OnNewRtspSubSessionPlay(session *rtsp.SubSession) bool {
	feeder := sm.source.NewFeeder(newMetricsSink(session, sm.metrics), func(option *feed.FeederOption) {
		option.FrameRate = sm.config.StreamConfig.FrameRate
	})
	session.AttachSource(feeder)

	sm.mu.Lock()
	sm.sessions[session.UniqueKey()] = &sessionEntry{
		sub:    session,
		feeder: feeder,
	}
	sm.mu.Unlock()

	sm.metrics.ActiveSessions.Inc()
	sm.metrics.TotalSessions.Inc()
	Log.Infof("[%s] attach feeder. [%s] remote=%s", session.UniqueKey(), feeder.UniqueKey(), session.RemoteAddr())
	return true
}

func (sm *ServerManager) OnDelRtspSubSession(session *rtsp.SubSession) {
	sm.mu.Lock()
	entry, ok := sm.sessions[session.UniqueKey()]
	delete(sm.sessions, session.UniqueKey())
	sm.mu.Unlock()
	if !ok {
		// DESCRIBE之后没有PLAY
		return
	}

	stat := entry.feeder.Stat()
	sm.metrics.ActiveSessions.Dec()
	sm.metrics.FramesDroppedAtGating.Add(float64(stat.DroppedAtGating))
	Log.Infof("[%s] session closed. feeder stat=%+v", session.UniqueKey(), stat)
}

// ----- stat ----------------------------------------------------------------------------------------------------------

type StatSource struct {
	Filename     string `json:"filename"`
	StreamIndex  int    `json:"stream_index"`
	Frames       int    `json:"frames"`
	Keyframes    int    `json:"keyframes"`
	DroppedCount int    `json:"dropped_count"`
	ParamSetLen  int    `json:"param_set_len"`
	Profile      uint8  `json:"profile"`
	Level        uint8  `json:"level"`
	SpsWidth     uint32 `json:"sps_width"`
	SpsHeight    uint32 `json:"sps_height"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FrameRate    int    `json:"frame_rate"`
	Mount        string `json:"mount"`
}

type StatSession struct {
	UniqueKey string              `json:"session_key"`
	Rtsp      rtsp.SubSessionStat `json:"rtsp"`
	Feeder    feed.FeederStat     `json:"feeder"`
}

func (sm *ServerManager) StatSource() StatSource {
	s := StatSource{
		Filename:  sm.config.SourceConfig.Filename,
		Profile:   sm.spsCtx.Profile,
		Level:     sm.spsCtx.Level,
		SpsWidth:  sm.spsCtx.Width,
		SpsHeight: sm.spsCtx.Height,
		Width:     sm.config.StreamConfig.Width,
		Height:    sm.config.StreamConfig.Height,
		FrameRate: sm.config.StreamConfig.FrameRate,
		Mount:     sm.config.RtspConfig.Mount,
	}
	if sm.source != nil {
		s.StreamIndex = sm.source.StreamIndex
		s.Frames = sm.source.Store.Len()
		s.Keyframes = sm.source.Store.KeyframeCount()
		s.DroppedCount = sm.source.DroppedCount
		s.ParamSetLen = sm.source.ParamSetCache.Len()
	}
	return s
}

func (sm *ServerManager) StatSessions() []StatSession {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	out := make([]StatSession, 0, len(sm.sessions))
	for uk, entry := range sm.sessions {
		out = append(out, StatSession{
			UniqueKey: uk,
			Rtsp:      entry.sub.GetStat(),
			Feeder:    entry.feeder.Stat(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UniqueKey < out[j].UniqueKey
	})
	return out
}
