// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

// 版本信息相关
// 一部分版本信息使用了naza.bininfo，另外一些信息在本文件提供

// Version 整个工程的版本号
const Version = "v0.1.0"

// ConfVersion 配置文件的版本号
const ConfVersion = "v0.1.0"

var (
	LibraryName = "esfeeder"
	GithubRepo  = "github.com/q191201771/esfeeder"
	GithubSite  = "https://github.com/q191201771/esfeeder"

	// FullInfo e.g. esfeeder v0.1.0 (github.com/q191201771/esfeeder)
	FullInfo = LibraryName + " " + Version + " (" + GithubRepo + ")"

	// ServerName 写入rtsp应答的Server字段，以及sdp的tool字段
	//
	// e.g. esfeeder/v0.1.0
	ServerName = LibraryName + "/" + Version
)
