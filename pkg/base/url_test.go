// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base_test

import (
	"errors"
	"testing"

	"github.com/q191201771/esfeeder/pkg/base"
	"github.com/q191201771/naza/pkg/assert"
)

func TestParseRtspUrl(t *testing.T) {
	golden := map[string]base.UrlContext{
		"rtsp://127.0.0.1:8554/test": {
			Url:            "rtsp://127.0.0.1:8554/test",
			Scheme:         "rtsp",
			StdHost:        "127.0.0.1:8554",
			HostWithPort:   "127.0.0.1:8554",
			Host:           "127.0.0.1",
			Port:           8554,
			Path:           "/test",
			LastItemOfPath: "test",
		},
		"rtsp://localhost/live/test/streamid=0?token=1": {
			Url:            "rtsp://localhost/live/test/streamid=0?token=1",
			Scheme:         "rtsp",
			StdHost:        "localhost",
			HostWithPort:   "localhost:554",
			Host:           "localhost",
			Port:           554,
			Path:           "/live/test/streamid=0",
			LastItemOfPath: "streamid=0",
			RawQuery:       "token=1",
		},
	}
	for k, v := range golden {
		ctx, err := base.ParseRtspUrl(k)
		assert.Equal(t, nil, err)
		assert.Equal(t, v, ctx)
	}

	for _, rawUrl := range []string{"invalidurl", "rtmp://127.0.0.1/live/test", "rtsp:///test", "rtsp://127.0.0.1:port/test"} {
		_, err := base.ParseRtspUrl(rawUrl)
		assert.Equal(t, true, errors.Is(err, base.ErrInvalidUrl))
	}
}

func TestUrlContext_PresentationPath(t *testing.T) {
	golden := map[string]string{
		"rtsp://127.0.0.1:8554/test":             "/test",
		"rtsp://127.0.0.1:8554/test/":            "/test",
		"rtsp://127.0.0.1:8554/test/streamid=0":  "/test",
		"rtsp://127.0.0.1:8554/test/streamid=0/": "/test",
		"rtsp://127.0.0.1:8554/a/b/streamid=0":   "/a/b",
		"rtsp://127.0.0.1:8554":                  "/",
		"rtsp://127.0.0.1:8554/streamid=0":       "/",
	}
	for k, v := range golden {
		ctx, err := base.ParseRtspUrl(k)
		assert.Equal(t, nil, err)
		assert.Equal(t, v, ctx.PresentationPath("streamid=0"))
	}
}
