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
	"fmt"
	"net"
	"sync"

	"github.com/q191201771/esfeeder/pkg/base"
	"github.com/q191201771/naza/pkg/connection"
	"github.com/q191201771/naza/pkg/nazaerrors"
	"github.com/q191201771/naza/pkg/nazahttp"
)

type ServerCommandSessionObserver interface {
	OnNewRtspSubSessionDescribe(session *SubSession) (ok bool, sdp []byte)
	OnNewRtspSubSessionPlay(session *SubSession) bool
}

type ServerCommandSession struct {
	uniqueKey  string                       // const after ctor
	observer   ServerCommandSessionObserver // const after ctor
	subOption  SubSessionOption             // const after ctor
	conn       connection.Connection
	remoteAddr string

	writeMu     sync.Mutex
	disposeOnce sync.Once

	mu         sync.Mutex
	subSession *SubSession
	stat       base.SessionStat
}

func NewServerCommandSession(observer ServerCommandSessionObserver, conn net.Conn, subOption SubSessionOption) *ServerCommandSession {
	uk := base.GenUkRtspServerCommandSession()
	s := &ServerCommandSession{
		uniqueKey: uk,
		observer:  observer,
		subOption: subOption,
		conn: connection.New(conn, func(option *connection.Option) {
			option.ReadBufSize = serverCommandSessionReadBufSize
		}),
		remoteAddr: conn.RemoteAddr().String(),
	}

	Log.Infof("[%s] lifecycle new rtsp ServerCommandSession. session=%p, laddr=%s, raddr=%s", uk, s, conn.LocalAddr().String(), s.remoteAddr)
	return s
}

func (session *ServerCommandSession) RunLoop() error {
	return session.runCmdLoop()
}

func (session *ServerCommandSession) Dispose() error {
	var err error
	session.disposeOnce.Do(func() {
		Log.Infof("[%s] lifecycle dispose rtsp ServerCommandSession. session=%p", session.uniqueKey, session)
		err = session.conn.Close()
	})
	return err
}

// WriteInterleavedPacket 使用RTSP TCP命令连接，向对端发送RTP/RTCP数据
func (session *ServerCommandSession) WriteInterleavedPacket(packet []byte, channel int) error {
	return session.write(packInterleaved(channel, packet))
}

func (session *ServerCommandSession) RemoteAddr() string {
	return session.remoteAddr
}

func (session *ServerCommandSession) UniqueKey() string {
	return session.uniqueKey
}

func (session *ServerCommandSession) WroteBytesSum() uint64 {
	return session.conn.GetStat().WroteBytesSum
}

// WriteBitrate 单位kbit/s
func (session *ServerCommandSession) WriteBitrate() int {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.stat.WriteBitrate()
}

func (session *ServerCommandSession) UpdateStat(intervalSec uint32) {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.stat.Update(session.conn, intervalSec)
}

func (session *ServerCommandSession) IsAlive() (readAlive, writeAlive bool) {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.stat.IsAlive(session.conn)
}

func (session *ServerCommandSession) SubSession() *SubSession {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.subSession
}

func (session *ServerCommandSession) runCmdLoop() error {
	var r = bufio.NewReader(session.conn)

	for {
		isInterleaved, packet, channel, err := readInterleaved(r)
		if err != nil {
			return nazaerrors.Wrap(err)
		}
		if isInterleaved {
			// 对端发来的rtcp，只记录
			Log.Debugf("[%s] read interleaved packet. channel=%d, len=%d", session.uniqueKey, channel, len(packet))
			continue
		}

		requestCtx, err := nazahttp.ReadHttpRequestMessage(r)
		if err != nil {
			return nazaerrors.Wrap(err)
		}

		Log.Debugf("[%s] read rtsp request. method=%s, uri=%s, version=%s, headers=%+v, body=%s",
			session.uniqueKey, requestCtx.Method, requestCtx.Uri, requestCtx.Version, requestCtx.Headers, string(requestCtx.Body))

		var handleMsgErr error
		switch requestCtx.Method {
		case MethodOptions:
			handleMsgErr = session.handleOptions(requestCtx)
		case MethodDescribe:
			handleMsgErr = session.handleDescribe(requestCtx)
		case MethodSetup:
			handleMsgErr = session.handleSetup(requestCtx)
		case MethodPlay:
			handleMsgErr = session.handlePlay(requestCtx)
		case MethodGetParameter:
			handleMsgErr = session.handleGetParameter(requestCtx)
		case MethodTeardown:
			// 回复之后由上层关闭连接
			return session.handleTeardown(requestCtx)
		default:
			Log.Warnf("[%s] unknown rtsp message. method=%s", session.uniqueKey, requestCtx.Method)
			handleMsgErr = session.writeResponse(PackResponseStatus(requestCtx.Headers.Get(HeaderCSeq), StatusMethodNotAllowed))
		}
		if handleMsgErr != nil {
			Log.Errorf("[%s] handle rtsp message error. err=%+v", session.uniqueKey, handleMsgErr)
			return handleMsgErr
		}
	}
}

func (session *ServerCommandSession) handleOptions(requestCtx nazahttp.HttpReqMsgCtx) error {
	Log.Infof("[%s] < R OPTIONS", session.uniqueKey)
	return session.writeResponse(PackResponseOptions(requestCtx.Headers.Get(HeaderCSeq)))
}

func (session *ServerCommandSession) handleDescribe(requestCtx nazahttp.HttpReqMsgCtx) error {
	Log.Infof("[%s] < R DESCRIBE", session.uniqueKey)
	cseq := requestCtx.Headers.Get(HeaderCSeq)

	if session.SubSession() != nil {
		return session.writeResponse(PackResponseStatus(cseq, StatusMethodNotValidInState))
	}

	urlCtx, err := base.ParseRtspUrl(requestCtx.Uri)
	if err != nil {
		Log.Errorf("[%s] parse presentation failed. uri=%s", session.uniqueKey, requestCtx.Uri)
		_ = session.writeResponse(PackResponseStatus(cseq, StatusNotFound))
		return err
	}

	sub := NewSubSession(urlCtx, session, session.subOption)
	ok, rawSdp := session.observer.OnNewRtspSubSessionDescribe(sub)
	if !ok {
		Log.Warnf("[%s] force close subSession. path=%s", session.uniqueKey, urlCtx.Path)
		_ = session.writeResponse(PackResponseStatus(cseq, StatusNotFound))
		return base.ErrRtspClosedByObserver
	}
	Log.Infof("[%s] link new SubSession. [%s]", session.uniqueKey, sub.UniqueKey())
	session.mu.Lock()
	session.subSession = sub
	session.mu.Unlock()

	contentBase := requestCtx.Uri
	if contentBase[len(contentBase)-1] != '/' {
		contentBase += "/"
	}
	return session.writeResponse(PackResponseDescribe(cseq, contentBase, rawSdp))
}

// SETUP 只支持interleaved模式
func (session *ServerCommandSession) handleSetup(requestCtx nazahttp.HttpReqMsgCtx) error {
	Log.Infof("[%s] < R SETUP", session.uniqueKey)
	cseq := requestCtx.Headers.Get(HeaderCSeq)

	sub := session.SubSession()
	if sub == nil {
		Log.Errorf("[%s] setup but session not exist.", session.uniqueKey)
		return session.writeResponse(PackResponseStatus(cseq, StatusMethodNotValidInState))
	}

	htv := requestCtx.Headers.Get(HeaderTransport)
	if !isTcpTransport(htv) {
		Log.Warnf("[%s] unsupported transport. transport=%s", session.uniqueKey, htv)
		return session.writeResponse(PackResponseStatus(cseq, StatusUnsupportedTransport))
	}

	rtpChannel, rtcpChannel := 0, 1
	if hasInterleavedField(htv) {
		var err error
		if rtpChannel, rtcpChannel, err = parseRtpRtcpChannel(htv); err != nil {
			Log.Errorf("[%s] parse rtp rtcp channel error. err=%+v", session.uniqueKey, err)
			return session.writeResponse(PackResponseStatus(cseq, StatusUnsupportedTransport))
		}
	}
	if err := sub.SetupWithChannel(requestCtx.Uri, rtpChannel, rtcpChannel); err != nil {
		Log.Errorf("[%s] setup channel error. err=%+v", session.uniqueKey, err)
		return session.writeResponse(PackResponseStatus(cseq, StatusNotFound))
	}

	transport := fmt.Sprintf("RTP/AVP/TCP;unicast;interleaved=%d-%d;ssrc=%08X", rtpChannel, rtcpChannel, sub.Ssrc())
	return session.writeResponse(PackResponseSetup(cseq, sub.SessionId(), transport))
}

func (session *ServerCommandSession) handlePlay(requestCtx nazahttp.HttpReqMsgCtx) error {
	Log.Infof("[%s] < R PLAY", session.uniqueKey)
	cseq := requestCtx.Headers.Get(HeaderCSeq)

	sub := session.SubSession()
	if sub == nil || !sub.IsSetup() {
		return session.writeResponse(PackResponseStatus(cseq, StatusMethodNotValidInState))
	}
	if !sub.checkSessionId(requestCtx.Headers.Get(HeaderSession)) {
		return session.writeResponse(PackResponseStatus(cseq, StatusSessionNotFound))
	}
	if sub.IsStarted() {
		// 不支持PAUSE，重复的PLAY直接回复
		return session.writeResponse(PackResponsePlay(cseq, sub.SessionId(), sub.RtpInfo()))
	}

	if ok := session.observer.OnNewRtspSubSessionPlay(sub); !ok {
		_ = session.writeResponse(PackResponseStatus(cseq, StatusInternalServerError))
		return base.ErrRtspClosedByObserver
	}

	// 先回复，再开始发送数据
	if err := session.writeResponse(PackResponsePlay(cseq, sub.SessionId(), sub.RtpInfo())); err != nil {
		return err
	}
	return sub.Start()
}

func (session *ServerCommandSession) handleGetParameter(requestCtx nazahttp.HttpReqMsgCtx) error {
	Log.Debugf("[%s] < R GET_PARAMETER", session.uniqueKey)
	var sessionId string
	if sub := session.SubSession(); sub != nil {
		sessionId = sub.SessionId()
	}
	return session.writeResponse(PackResponseGetParameter(requestCtx.Headers.Get(HeaderCSeq), sessionId))
}

func (session *ServerCommandSession) handleTeardown(requestCtx nazahttp.HttpReqMsgCtx) error {
	Log.Infof("[%s] < R TEARDOWN", session.uniqueKey)
	var sessionId string
	if sub := session.SubSession(); sub != nil {
		sessionId = sub.SessionId()
	}
	return session.writeResponse(PackResponseTeardown(requestCtx.Headers.Get(HeaderCSeq), sessionId))
}

func (session *ServerCommandSession) writeResponse(resp string) error {
	return session.write([]byte(resp))
}

func (session *ServerCommandSession) write(b []byte) error {
	session.writeMu.Lock()
	defer session.writeMu.Unlock()
	_, err := session.conn.Write(b)
	return err
}
