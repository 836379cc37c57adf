// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/q191201771/esfeeder/pkg/base"
)

const (
	ErrorCodeSucc = 0
	DespSucc      = "succ"
)

type ApiRespBasic struct {
	ErrorCode int    `json:"error_code"`
	Desp      string `json:"desp"`
}

type ApiStatSource struct {
	ApiRespBasic
	Data StatSource `json:"data"`
}

type ApiStatSessions struct {
	ApiRespBasic
	Data struct {
		Sessions []StatSession `json:"sessions"`
	} `json:"data"`
}

type ApiStatInfo struct {
	ApiRespBasic
	Data struct {
		ServerName string `json:"server_name"`
		Version    string `json:"version"`
	} `json:"data"`
}

// HttpApiServer 只读的状态查询接口，以及prometheus指标
type HttpApiServer struct {
	addr   string
	sm     *ServerManager
	engine *gin.Engine

	ln  net.Listener
	srv *http.Server
}

func NewHttpApiServer(addr string, sm *ServerManager) *HttpApiServer {
	gin.SetMode(gin.ReleaseMode)
	h := &HttpApiServer{
		addr:   addr,
		sm:     sm,
		engine: gin.New(),
	}
	h.srv = &http.Server{Handler: h.engine}
	h.engine.Use(gin.Recovery())
	h.engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	h.engine.GET("/api/stat/info", h.statInfoHandler)
	h.engine.GET("/api/stat/source", h.statSourceHandler)
	h.engine.GET("/api/stat/sessions", h.statSessionsHandler)
	h.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(sm.registry, promhttp.HandlerOpts{})))
	return h
}

func (h *HttpApiServer) Listen() (err error) {
	if h.ln, err = net.Listen("tcp", h.addr); err != nil {
		return
	}
	Log.Infof("start http api server listen. addr=%s", h.ln.Addr().String())
	return
}

func (h *HttpApiServer) Addr() string {
	if h.ln == nil {
		return h.addr
	}
	return h.ln.Addr().String()
}

func (h *HttpApiServer) RunLoop() error {
	err := h.srv.Serve(h.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (h *HttpApiServer) Dispose() {
	_ = h.srv.Close()
	if h.ln != nil {
		_ = h.ln.Close()
	}
}

func (h *HttpApiServer) statInfoHandler(c *gin.Context) {
	var v ApiStatInfo
	v.ErrorCode = ErrorCodeSucc
	v.Desp = DespSucc
	v.Data.ServerName = base.ServerName
	v.Data.Version = base.Version
	c.JSON(http.StatusOK, v)
}

func (h *HttpApiServer) statSourceHandler(c *gin.Context) {
	var v ApiStatSource
	v.ErrorCode = ErrorCodeSucc
	v.Desp = DespSucc
	v.Data = h.sm.StatSource()
	c.JSON(http.StatusOK, v)
}

func (h *HttpApiServer) statSessionsHandler(c *gin.Context) {
	var v ApiStatSessions
	v.ErrorCode = ErrorCodeSucc
	v.Desp = DespSucc
	v.Data.Sessions = h.sm.StatSessions()
	c.JSON(http.StatusOK, v)
}
