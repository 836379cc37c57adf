// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtsp

import (
	"net"
	"sync"
	"time"
)

type ServerObserver interface {
	// OnNewRtspSubSessionDescribe Describe阶段回调
	//
	// @return ok  如果返回false，则表示上层要强制关闭这个拉流请求，回复404
	// @return sdp
	OnNewRtspSubSessionDescribe(session *SubSession) (ok bool, sdp []byte)

	// OnNewRtspSubSessionPlay Play阶段回调，上层在这里为session绑定数据源
	//
	// @return ok  如果返回false，则表示上层要强制关闭这个拉流请求
	OnNewRtspSubSessionPlay(session *SubSession) bool

	// OnDelRtspSubSession 注意，只有Describe成功的session才会回调
	OnDelRtspSubSession(session *SubSession)
}

type Server struct {
	addr     string
	observer ServerObserver
	option   SubSessionOption

	ln net.Listener

	mu          sync.Mutex
	sessions    map[*ServerCommandSession]struct{}
	disposeCh   chan struct{}
	disposeOnce sync.Once
}

func NewServer(addr string, observer ServerObserver, modOptions ...ModSubSessionOption) *Server {
	option := defaultSubSessionOption
	for _, fn := range modOptions {
		fn(&option)
	}
	return &Server{
		addr:      addr,
		observer:  observer,
		option:    option,
		sessions:  make(map[*ServerCommandSession]struct{}),
		disposeCh: make(chan struct{}),
	}
}

func (s *Server) Listen() (err error) {
	s.ln, err = net.Listen("tcp", s.addr)
	if err != nil {
		return
	}
	Log.Infof("start rtsp server listen. addr=%s", s.ln.Addr().String())
	return
}

// Addr 实际监听的地址，配置中端口为0时用于获取系统分配的端口
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

func (s *Server) RunLoop() error {
	go s.runTickLoop()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return err
		}
		go s.handleTcpConnect(conn)
	}
}

func (s *Server) Dispose() {
	s.disposeOnce.Do(func() {
		close(s.disposeCh)
	})
	if s.ln != nil {
		if err := s.ln.Close(); err != nil {
			Log.Errorf("close rtsp listener failed. err=%+v", err)
		}
	}

	for _, session := range s.allSessions() {
		_ = session.Dispose()
	}
}

// ServerCommandSessionObserver
func (s *Server) OnNewRtspSubSessionDescribe(session *SubSession) (ok bool, sdp []byte) {
	return s.observer.OnNewRtspSubSessionDescribe(session)
}

// ServerCommandSessionObserver
func (s *Server) OnNewRtspSubSessionPlay(session *SubSession) bool {
	return s.observer.OnNewRtspSubSessionPlay(session)
}

func (s *Server) handleTcpConnect(conn net.Conn) {
	session := NewServerCommandSession(s, conn, s.option)
	s.mu.Lock()
	s.sessions[session] = struct{}{}
	s.mu.Unlock()

	err := session.RunLoop()
	Log.Infof("[%s] command session loop done. err=%v", session.UniqueKey(), err)

	if sub := session.SubSession(); sub != nil {
		s.observer.OnDelRtspSubSession(sub)
		sub.Dispose()
	}
	_ = session.Dispose()

	s.mu.Lock()
	delete(s.sessions, session)
	s.mu.Unlock()
}

// runTickLoop 定时计算各session的码率，并关闭长时间没有读写数据的session
func (s *Server) runTickLoop() {
	t := time.NewTicker(1 * time.Second)
	defer t.Stop()
	var tickCount uint32
	for {
		select {
		case <-s.disposeCh:
			return
		case <-t.C:
		}
		tickCount++

		if tickCount%calcSessionStatIntervalSec == 0 {
			for _, session := range s.allSessions() {
				session.UpdateStat(calcSessionStatIntervalSec)
			}
		}

		if tickCount%checkSessionAliveIntervalSec == 0 {
			for _, session := range s.allSessions() {
				if readAlive, writeAlive := session.IsAlive(); !readAlive && !writeAlive {
					Log.Warnf("[%s] session timeout. remote=%s", session.UniqueKey(), session.RemoteAddr())
					_ = session.Dispose()
				}
			}
		}
	}
}

func (s *Server) allSessions() []*ServerCommandSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := make([]*ServerCommandSession, 0, len(s.sessions))
	for session := range s.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}
