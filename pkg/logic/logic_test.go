// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/q191201771/esfeeder/pkg/base"
	"github.com/q191201771/esfeeder/pkg/feed"
	"github.com/q191201771/naza/pkg/assert"
	"github.com/q191201771/naza/pkg/nazahttp"
	"github.com/q191201771/naza/pkg/nazalog"
)

var (
	goldenSps, _ = hex.DecodeString("67640020acd940c029b011000003000100000300320f183196")
	goldenPps, _ = hex.DecodeString("68ebecb22c")
	startCode    = []byte{0, 0, 0, 1}
)

func join(bs ...[]byte) []byte {
	var out []byte
	for _, b := range bs {
		out = append(out, b...)
	}
	return out
}

// 参数集38字节，之后是一个IDR和两个P帧
func writeTestStream(t *testing.T) (filename string, blobLen int) {
	blob := join(startCode, goldenSps, startCode, goldenPps)
	stream := join(blob,
		startCode, []byte{0x65, 0x88, 0x84, 0x00, 0x33},
		startCode, []byte{0x41, 0x9a, 0x00, 0x11},
		startCode, []byte{0x41, 0x9a, 0x01, 0x22})
	filename = filepath.Join(t.TempDir(), "test.h264")
	assert.Equal(t, nil, os.WriteFile(filename, stream, 0644))
	return filename, len(blob)
}

func newTestConfig(t *testing.T) *Config {
	filename, blobLen := writeTestStream(t)
	raw := fmt.Sprintf(`{
  "source": {"filename": %q, "param_set_len": %d},
  "stream": {"width": 768, "height": 320},
  "rtsp": {"addr": "127.0.0.1:0", "mount": "test"},
  "http_api": {"addr": "127.0.0.1:0"}
}`, filename, blobLen)
	config, err := LoadConf([]byte(raw))
	assert.Equal(t, nil, err)
	return config
}

func TestLoadConf(t *testing.T) {
	config, err := LoadConf([]byte("{}"))
	assert.Equal(t, nil, err)
	assert.Equal(t, "", config.SourceConfig.Filename)
	assert.Equal(t, feed.DefaultParamSetLen, config.SourceConfig.ParamSetLen)
	assert.Equal(t, 384, config.StreamConfig.Width)
	assert.Equal(t, 288, config.StreamConfig.Height)
	assert.Equal(t, 25, config.StreamConfig.FrameRate)
	assert.Equal(t, ":8554", config.RtspConfig.Addr)
	assert.Equal(t, "/test", config.RtspConfig.Mount)
	assert.Equal(t, 8, config.RtspConfig.WriteQueueSize)
	assert.Equal(t, true, config.HttpApiConfig.Enable)
	assert.Equal(t, ":8083", config.HttpApiConfig.Addr)
	assert.Equal(t, nazalog.LevelDebug, config.LogConfig.Level)
	assert.Equal(t, true, config.LogConfig.IsToStdout)

	config, err = LoadConf([]byte(`{"stream": {"frame_rate": 30}, "rtsp": {"mount": "live/"}, "http_api": {"enable": false}}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, 30, config.StreamConfig.FrameRate)
	assert.Equal(t, "/live", config.RtspConfig.Mount)
	assert.Equal(t, false, config.HttpApiConfig.Enable)

	_, err = LoadConf([]byte("{"))
	assert.IsNotNil(t, err)
}

type testSink struct {
	frames []feed.Frame
	eos    int
	err    error
}

func (s *testSink) OnFrame(frame feed.Frame) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *testSink) OnEndOfStream() {
	s.eos++
}

func TestMetricsSink(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	sink := &testSink{}
	ms := newMetricsSink(sink, m)

	assert.Equal(t, nil, ms.OnFrame(feed.Frame{Payload: make([]byte, 10), IsKeyframe: true}))
	assert.Equal(t, nil, ms.OnFrame(feed.Frame{Payload: make([]byte, 5)}))
	assert.Equal(t, 2, len(sink.frames))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FramesEmitted.WithLabelValues("true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FramesEmitted.WithLabelValues("false")))
	assert.Equal(t, float64(15), testutil.ToFloat64(m.BytesEmitted))

	// 下游出错时不计数
	sink.err = errors.New("broken")
	assert.IsNotNil(t, ms.OnFrame(feed.Frame{Payload: make([]byte, 5)}))
	assert.Equal(t, float64(15), testutil.ToFloat64(m.BytesEmitted))

	ms.OnEndOfStream()
	ms.OnEndOfStream()
	assert.Equal(t, 2, sink.eos)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EndOfStreams))
}

func TestServerManagerInitFailure(t *testing.T) {
	config, _ := LoadConf([]byte("{}"))
	err := NewServerManager(config).Init()
	assert.Equal(t, true, errors.Is(err, base.ErrIngestionFailure))

	config.SourceConfig.Filename = filepath.Join(t.TempDir(), "notexist.h264")
	err = NewServerManager(config).Init()
	assert.Equal(t, true, errors.Is(err, base.ErrIngestionFailure))

	// 没有h264数据
	config.SourceConfig.Filename = filepath.Join(t.TempDir(), "empty.h264")
	assert.Equal(t, nil, os.WriteFile(config.SourceConfig.Filename, []byte{1, 2, 3}, 0644))
	err = NewServerManager(config).Init()
	assert.Equal(t, true, errors.Is(err, base.ErrIngestionFailure))
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
	cseq int
}

func dial(t *testing.T, addr string) *testClient {
	conn, err := net.Dial("tcp", addr)
	assert.Equal(t, nil, err)
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	return &testClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *testClient) request(method, uri string, headers ...string) (code int, h http.Header, body []byte) {
	c.cseq++
	req := fmt.Sprintf("%s %s RTSP/1.0\r\nCSeq: %d\r\n%s\r\n", method, uri, c.cseq, strings.Join(append(headers, ""), "\r\n"))
	_, err := c.conn.Write([]byte(req))
	assert.Equal(c.t, nil, err)

	respCtx, err := nazahttp.ReadHttpResponseMessage(c.r)
	assert.Equal(c.t, nil, err)
	code, _ = strconv.Atoi(respCtx.StatusCode)
	return code, respCtx.Headers, respCtx.Body
}

// 读取interleaved数据直到rtcp bye，返回rtp包个数
func (c *testClient) readUntilBye() (n int) {
	header := make([]byte, 4)
	for {
		_, err := io.ReadFull(c.r, header)
		assert.Equal(c.t, nil, err)
		packet := make([]byte, int(header[2])<<8|int(header[3]))
		_, err = io.ReadFull(c.r, packet)
		assert.Equal(c.t, nil, err)
		if header[1] == 1 {
			return
		}
		n++
	}
}

func TestServerManager(t *testing.T) {
	config := newTestConfig(t)
	sm := NewServerManager(config)
	assert.Equal(t, nil, sm.Init())

	stat := sm.StatSource()
	assert.Equal(t, 3, stat.Frames)
	assert.Equal(t, 1, stat.Keyframes)
	assert.Equal(t, 0, stat.DroppedCount)
	assert.Equal(t, 38, stat.ParamSetLen)
	assert.Equal(t, uint8(100), stat.Profile)
	assert.Equal(t, uint8(32), stat.Level)
	assert.Equal(t, uint32(768), stat.SpsWidth)
	assert.Equal(t, uint32(320), stat.SpsHeight)
	assert.Equal(t, "/test", stat.Mount)

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan error, 1)
	go func() {
		loopDone <- sm.RunLoop(ctx)
	}()

	url := fmt.Sprintf("rtsp://%s/test", sm.RtspAddr())

	{
		c := dial(t, sm.RtspAddr())
		code, _, _ := c.request("DESCRIBE", fmt.Sprintf("rtsp://%s/other", sm.RtspAddr()))
		assert.Equal(t, 404, code)
		_ = c.conn.Close()
	}

	c := dial(t, sm.RtspAddr())
	code, _, body := c.request("DESCRIBE", url)
	assert.Equal(t, 200, code)
	assert.Equal(t, sm.sdp, body)
	assert.Equal(t, true, strings.Contains(string(body), "a=framesize:96 768-320"))

	code, h, _ := c.request("SETUP", url+"/streamid=0", "Transport: RTP/AVP/TCP;unicast;interleaved=0-1")
	assert.Equal(t, 200, code)
	session := strings.Split(h.Get("Session"), ";")[0]

	code, _, _ = c.request("PLAY", url, "Session: "+session)
	assert.Equal(t, 200, code)
	// SPS PPS IDR P P
	assert.Equal(t, 5, c.readUntilBye())

	sessions := sm.StatSessions()
	assert.Equal(t, 1, len(sessions))
	assert.Equal(t, "Drained", sessions[0].Feeder.State)
	assert.Equal(t, uint64(3), sessions[0].Feeder.EmittedFrames)
	assert.Equal(t, session, sessions[0].Rtsp.SessionId)

	code, _, _ = c.request("TEARDOWN", url, "Session: "+session)
	assert.Equal(t, 200, code)
	_ = c.conn.Close()

	for i := 0; i < 100 && len(sm.StatSessions()) != 0; i++ {
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, 0, len(sm.StatSessions()))
	assert.Equal(t, float64(1), testutil.ToFloat64(sm.metrics.TotalSessions))
	assert.Equal(t, float64(0), testutil.ToFloat64(sm.metrics.ActiveSessions))
	assert.Equal(t, float64(1), testutil.ToFloat64(sm.metrics.EndOfStreams))
	assert.Equal(t, float64(1), testutil.ToFloat64(sm.metrics.FramesEmitted.WithLabelValues("true")))
	assert.Equal(t, float64(2), testutil.ToFloat64(sm.metrics.FramesEmitted.WithLabelValues("false")))

	// http api
	resp, err := http.Get(fmt.Sprintf("http://%s/api/stat/source", sm.HttpApiAddr()))
	assert.Equal(t, nil, err)
	var v ApiStatSource
	assert.Equal(t, nil, json.NewDecoder(resp.Body).Decode(&v))
	_ = resp.Body.Close()
	assert.Equal(t, ErrorCodeSucc, v.ErrorCode)
	assert.Equal(t, 3, v.Data.Frames)
	assert.Equal(t, config.SourceConfig.Filename, v.Data.Filename)

	w := httptest.NewRecorder()
	sm.httpApiServer.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, strings.Contains(w.Body.String(), "esfeeder_source_frames 3"))
	assert.Equal(t, true, strings.Contains(w.Body.String(), "esfeeder_sessions_total 1"))

	req := httptest.NewRequest(http.MethodGet, "/api/stat/info", nil)
	req.Header.Set("Origin", "http://other.test")
	w = httptest.NewRecorder()
	sm.httpApiServer.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	var vi ApiStatInfo
	assert.Equal(t, nil, json.Unmarshal(w.Body.Bytes(), &vi))
	assert.Equal(t, base.ServerName, vi.Data.ServerName)

	w = httptest.NewRecorder()
	sm.httpApiServer.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stat/sessions", nil))
	var vs ApiStatSessions
	assert.Equal(t, nil, json.Unmarshal(w.Body.Bytes(), &vs))
	assert.Equal(t, 0, len(vs.Data.Sessions))

	cancel()
	select {
	case err := <-loopDone:
		assert.Equal(t, nil, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server manager loop not exit")
	}
}
