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
	"time"

	"github.com/q191201771/esfeeder/pkg/base"
)

// rfc2326 10.1 OPTIONS
// CSeq
var ResponseOptionsTmpl = "RTSP/1.0 200 OK\r\n" +
	"Server: " + base.ServerName + "\r\n" +
	"CSeq: %s\r\n" +
	"Public: OPTIONS, DESCRIBE, SETUP, PLAY, TEARDOWN, GET_PARAMETER\r\n" +
	"\r\n"

// rfc2326 10.2 DESCRIBE
// CSeq, Date, Content-Base, Content-Length
var ResponseDescribeTmpl = "RTSP/1.0 200 OK\r\n" +
	"Server: " + base.ServerName + "\r\n" +
	"CSeq: %s\r\n" +
	"Date: %s\r\n" +
	"Content-Base: %s\r\n" +
	"Content-Type: application/sdp\r\n" +
	"Content-Length: %d\r\n" +
	"\r\n" +
	"%s"

// rfc2326 10.4 SETUP
// CSeq, Date, Session, Transport
var ResponseSetupTmpl = "RTSP/1.0 200 OK\r\n" +
	"Server: " + base.ServerName + "\r\n" +
	"CSeq: %s\r\n" +
	"Date: %s\r\n" +
	"Session: %s;timeout=%d\r\n" +
	"Transport: %s\r\n" +
	"\r\n"

// rfc2326 10.5 PLAY
// CSeq, Date, Session, Range, RTP-Info
var ResponsePlayTmpl = "RTSP/1.0 200 OK\r\n" +
	"Server: " + base.ServerName + "\r\n" +
	"CSeq: %s\r\n" +
	"Date: %s\r\n" +
	"Session: %s\r\n" +
	"Range: npt=0.000-\r\n" +
	"RTP-Info: %s\r\n" +
	"\r\n"

// rfc2326 10.7 TEARDOWN, 10.8 GET_PARAMETER
// CSeq, Session
var ResponseSessionTmpl = "RTSP/1.0 200 OK\r\n" +
	"Server: " + base.ServerName + "\r\n" +
	"CSeq: %s\r\n" +
	"Session: %s\r\n" +
	"\r\n"

var ResponseStatusTmpl = "RTSP/1.0 %d %s\r\n" +
	"Server: " + base.ServerName + "\r\n" +
	"CSeq: %s\r\n" +
	"\r\n"

func PackResponseOptions(cseq string) string {
	return fmt.Sprintf(ResponseOptionsTmpl, cseq)
}

func PackResponseDescribe(cseq string, contentBase string, sdp []byte) string {
	return fmt.Sprintf(ResponseDescribeTmpl, cseq, date(), contentBase, len(sdp), string(sdp))
}

// PackResponseSetup
//
// @param transport: 比如 RTP/AVP/TCP;unicast;interleaved=0-1;ssrc=1234ABCD
func PackResponseSetup(cseq string, sessionId string, transport string) string {
	return fmt.Sprintf(ResponseSetupTmpl, cseq, date(), sessionId, sessionTimeoutSec, transport)
}

// PackResponsePlay
//
// @param rtpInfo: 比如 url=rtsp://127.0.0.1:8554/test/streamid=0;seq=1234;rtptime=0
func PackResponsePlay(cseq string, sessionId string, rtpInfo string) string {
	return fmt.Sprintf(ResponsePlayTmpl, cseq, date(), sessionId, rtpInfo)
}

func PackResponseTeardown(cseq string, sessionId string) string {
	return fmt.Sprintf(ResponseSessionTmpl, cseq, sessionId)
}

func PackResponseGetParameter(cseq string, sessionId string) string {
	return fmt.Sprintf(ResponseSessionTmpl, cseq, sessionId)
}

// PackResponseStatus 非200的回复
func PackResponseStatus(cseq string, code int) string {
	text, ok := statusText[code]
	if !ok {
		text = "Unknown"
	}
	return fmt.Sprintf(ResponseStatusTmpl, code, text, cseq)
}

func date() string {
	return time.Now().UTC().Format(time.RFC1123)
}
