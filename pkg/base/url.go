// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const DefaultRtspPort = 554

type UrlContext struct {
	Url string

	Scheme       string
	StdHost      string // host or host:port
	HostWithPort string
	Host         string
	Port         int

	Path           string
	LastItemOfPath string // 注意，没有前面的'/'
	RawQuery       string
}

// ParseRtspUrl
//
// 注意，url中不存在端口时，使用rtsp的默认端口554
func ParseRtspUrl(rawUrl string) (ctx UrlContext, err error) {
	ctx.Url = rawUrl

	stdUrl, err := url.Parse(rawUrl)
	if err != nil {
		return ctx, fmt.Errorf("%w. url=%s, err=%v", ErrInvalidUrl, rawUrl, err)
	}
	if !strings.EqualFold(stdUrl.Scheme, "rtsp") || stdUrl.Host == "" {
		return ctx, fmt.Errorf("%w. url=%s", ErrInvalidUrl, rawUrl)
	}

	ctx.Scheme = strings.ToLower(stdUrl.Scheme)
	ctx.StdHost = stdUrl.Host

	h, p, err := net.SplitHostPort(stdUrl.Host)
	if err != nil {
		// url中端口不存在
		ctx.Host = stdUrl.Host
		ctx.Port = DefaultRtspPort
		ctx.HostWithPort = net.JoinHostPort(stdUrl.Host, strconv.Itoa(DefaultRtspPort))
	} else {
		if ctx.Port, err = strconv.Atoi(p); err != nil {
			return ctx, fmt.Errorf("%w. url=%s", ErrInvalidUrl, rawUrl)
		}
		ctx.Host = h
		ctx.HostWithPort = stdUrl.Host
	}

	ctx.Path = stdUrl.Path
	if index := strings.LastIndexByte(ctx.Path, '/'); index != -1 {
		ctx.LastItemOfPath = ctx.Path[index+1:]
	}
	ctx.RawQuery = stdUrl.RawQuery
	return ctx, nil
}

// PresentationPath 去掉末尾的track control（比如 /live/test/streamid=0 -> /live/test），以及多余的'/'
func (u *UrlContext) PresentationPath(control string) string {
	p := strings.TrimRight(u.Path, "/")
	if control != "" {
		p = strings.TrimSuffix(p, "/"+control)
	}
	if p == "" {
		return "/"
	}
	return p
}
