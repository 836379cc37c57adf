// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"context"
	"os"
	"strings"

	"github.com/q191201771/esfeeder/pkg/base"
	"github.com/q191201771/naza/pkg/bininfo"
)

// ModConfig 在配置文件加载之后修改配置，比如使用命令行参数覆盖
type ModConfig func(config *Config)

var (
	config *Config
	sm     *ServerManager
)

func GetConfig() *Config {
	return config
}

// Init 加载配置并入库源文件
//
// 入库失败时返回错误，调用方应退出进程
func Init(confFile string, modConfigs ...ModConfig) (err error) {
	if config, err = LoadConfAndInitLog(confFile); err != nil {
		return err
	}
	for _, fn := range modConfigs {
		fn(config)
	}
	config.RtspConfig.Mount = normalizeMount(config.RtspConfig.Mount)

	dir, _ := os.Getwd()
	Log.Infof("wd: %s", dir)
	Log.Infof("args: %s", strings.Join(os.Args, " "))
	Log.Infof("bininfo: %s", bininfo.StringifySingleLine())
	Log.Infof("version: %s", base.FullInfo)
	Log.Infof("github: %s", base.GithubSite)

	sm = NewServerManager(config)
	return sm.Init()
}

// RunLoop 阻塞直到收到退出信号
func RunLoop() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go base.RunSignalHandler(cancel)

	err := sm.RunLoop(ctx)
	Log.Infof("server manager loop break. err=%+v", err)
	return err
}

func Dispose() {
	if sm != nil {
		sm.Dispose()
	}
}
