// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtsp

// rfc2326

const (
	MethodOptions      = "OPTIONS"
	MethodDescribe     = "DESCRIBE"
	MethodSetup        = "SETUP"
	MethodPlay         = "PLAY"
	MethodTeardown     = "TEARDOWN"
	MethodGetParameter = "GET_PARAMETER"
)

const (
	HeaderCSeq          = "CSeq"
	HeaderTransport     = "Transport"
	HeaderSession       = "Session"
	HeaderContentLength = "Content-Length"
)

const (
	TransportFieldInterleaved = "interleaved"
)

const (
	StatusOk                    = 200
	StatusNotFound              = 404
	StatusMethodNotAllowed      = 405
	StatusSessionNotFound       = 454
	StatusMethodNotValidInState = 455
	StatusUnsupportedTransport  = 461
	StatusInternalServerError   = 500
)

var statusText = map[int]string{
	StatusOk:                    "OK",
	StatusNotFound:              "Not Found",
	StatusMethodNotAllowed:      "Method Not Allowed",
	StatusSessionNotFound:       "Session Not Found",
	StatusMethodNotValidInState: "Method Not Valid in This State",
	StatusUnsupportedTransport:  "Unsupported Transport",
	StatusInternalServerError:   "Internal Server Error",
}

// Interleaved rfc2326 10.12 Embedded (Interleaved) Binary Data
const Interleaved = uint8(0x24)
