// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"errors"
	"fmt"
)

// ----- 通用的 ---------------------------------------------------------------------------------------------------------

var ErrInvalidUrl = errors.New("esfeeder: invalid url")

// ----- pkg/avc -------------------------------------------------------------------------------------------------------

var (
	ErrAvc = errors.New("esfeeder.avc: fxxk")

	// ErrMalformedUnit access unit太短，无法读取start code之后的nal header
	ErrMalformedUnit = errors.New("esfeeder.avc: malformed access unit")
)

func NewErrMalformedUnit(length int) error {
	return fmt.Errorf("%w. len=%d", ErrMalformedUnit, length)
}

// ----- pkg/feed ------------------------------------------------------------------------------------------------------

var (
	ErrNotInitialized   = errors.New("esfeeder.feed: parameter set cache not initialized")
	ErrParamSetCaptured = errors.New("esfeeder.feed: parameter set already captured")
	ErrFrameStoreFrozen = errors.New("esfeeder.feed: frame store frozen")
	ErrIngestionFailure = errors.New("esfeeder.feed: ingestion failure")
)

func NewErrIngestionFailure(reason string, err error) error {
	if err == nil {
		return fmt.Errorf("%w. reason=%s", ErrIngestionFailure, reason)
	}
	return fmt.Errorf("%w. reason=%s, err=%v", ErrIngestionFailure, reason, err)
}

// ----- pkg/rtprtcp ---------------------------------------------------------------------------------------------------

var ErrRtp = errors.New("esfeeder.rtprtcp: fxxk")

// ----- pkg/rtsp ------------------------------------------------------------------------------------------------------

var (
	ErrRtsp                     = errors.New("esfeeder.rtsp: fxxk")
	ErrRtspUnsupportedTransport = errors.New("esfeeder.rtsp: unsupported Transport")
	ErrRtspClosedByObserver     = errors.New("esfeeder.rtsp: close by observer")
	ErrRtspFeederNotAttached    = errors.New("esfeeder.rtsp: feeder not attached")
)

// ----- pkg/sdp -------------------------------------------------------------------------------------------------------

var ErrSdp = errors.New("esfeeder.sdp: fxxk")

// ---------------------------------------------------------------------------------------------------------------------
