// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/q191201771/esfeeder/pkg/base"
	"github.com/q191201771/esfeeder/pkg/feed"
	"github.com/q191201771/naza/pkg/nazajson"
	"github.com/q191201771/naza/pkg/nazalog"
)

type Config struct {
	ConfVersion   string         `json:"conf_version"`
	SourceConfig  SourceConfig   `json:"source"`
	StreamConfig  StreamConfig   `json:"stream"`
	RtspConfig    RtspConfig     `json:"rtsp"`
	HttpApiConfig HttpApiConfig  `json:"http_api"`
	LogConfig     nazalog.Option `json:"log"`
}

type SourceConfig struct {
	Filename    string `json:"filename"`
	ParamSetLen int    `json:"param_set_len"`
}

// StreamConfig 对外声明的视频格式，不从码流中推导
type StreamConfig struct {
	Width     int `json:"width"`
	Height    int `json:"height"`
	FrameRate int `json:"frame_rate"`
}

type RtspConfig struct {
	Addr           string `json:"addr"`
	Mount          string `json:"mount"`
	WriteQueueSize int    `json:"write_queue_size"`
}

type HttpApiConfig struct {
	Enable bool   `json:"enable"`
	Addr   string `json:"addr"`
}

// LoadConfAndInitLog
//
// @param confFile: 为空时全部使用默认配置
func LoadConfAndInitLog(confFile string) (*Config, error) {
	rawContent := []byte("{}")
	if confFile != "" {
		var err error
		if rawContent, err = os.ReadFile(confFile); err != nil {
			return nil, err
		}
	}

	config, err := LoadConf(rawContent)
	if err != nil {
		return nil, err
	}

	if err = nazalog.Init(func(option *nazalog.Option) {
		*option = config.LogConfig
	}); err != nil {
		return nil, err
	}
	if config.ConfVersion != "" && config.ConfVersion != base.ConfVersion {
		Log.Warnf("config version invalid. conf version of esfeeder=%s, conf version of config file=%s",
			base.ConfVersion, config.ConfVersion)
	}
	Log.Infof("load conf file succ. filename=%s, raw content=%s parsed=%+v", confFile, rawContent, config)
	return config, nil
}

// LoadConf 解析配置内容，不存在的配置项使用默认值
func LoadConf(rawContent []byte) (*Config, error) {
	var config Config
	if err := json.Unmarshal(rawContent, &config); err != nil {
		return nil, err
	}

	j, err := nazajson.New(rawContent)
	if err != nil {
		return nil, err
	}

	if !j.Exist("source.param_set_len") {
		config.SourceConfig.ParamSetLen = feed.DefaultParamSetLen
	}
	if !j.Exist("stream.width") {
		config.StreamConfig.Width = defaultStreamWidth
	}
	if !j.Exist("stream.height") {
		config.StreamConfig.Height = defaultStreamHeight
	}
	if !j.Exist("stream.frame_rate") {
		config.StreamConfig.FrameRate = feed.DefaultFrameRate
	}
	if !j.Exist("rtsp.addr") {
		config.RtspConfig.Addr = defaultRtspAddr
	}
	if !j.Exist("rtsp.mount") {
		config.RtspConfig.Mount = defaultRtspMount
	}
	if !j.Exist("rtsp.write_queue_size") {
		config.RtspConfig.WriteQueueSize = defaultWriteQueueSize
	}
	if !j.Exist("http_api.enable") {
		config.HttpApiConfig.Enable = true
	}
	if !j.Exist("http_api.addr") {
		config.HttpApiConfig.Addr = defaultHttpApiAddr
	}

	if !j.Exist("log.level") {
		config.LogConfig.Level = nazalog.LevelDebug
	}
	if !j.Exist("log.filename") {
		config.LogConfig.Filename = defaultLogFilename
	}
	if !j.Exist("log.is_to_stdout") {
		config.LogConfig.IsToStdout = true
	}
	if !j.Exist("log.is_rotate_daily") {
		config.LogConfig.IsRotateDaily = true
	}
	if !j.Exist("log.short_file_flag") {
		config.LogConfig.ShortFileFlag = true
	}
	if !j.Exist("log.assert_behavior") {
		config.LogConfig.AssertBehavior = nazalog.AssertError
	}

	config.RtspConfig.Mount = normalizeMount(config.RtspConfig.Mount)
	return &config, nil
}

// 比如 test -> /test, /test/ -> /test
func normalizeMount(mount string) string {
	mount = strings.TrimRight(mount, "/")
	if !strings.HasPrefix(mount, "/") {
		mount = "/" + mount
	}
	return mount
}
