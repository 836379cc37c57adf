// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package sdp

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/q191201771/esfeeder/pkg/base"
)

const (
	// VideoControl 单视频流，SETUP时的track地址
	VideoControl = "streamid=0"

	VideoPayloadType = 96
)

// VideoInfo 流的声明格式
//
// 宽高和帧率是配置中的固定值，不从码流中推导
type VideoInfo struct {
	Sps       []byte // 不包含start code
	Pps       []byte // 不包含start code
	Width     int
	Height    int
	FrameRate int
}

// Pack 生成只包含一路h264视频的sdp
func Pack(video VideoInfo) (raw []byte, err error) {
	if len(video.Sps) < 4 || len(video.Pps) == 0 {
		return nil, fmt.Errorf("%w. sps=%x, pps=%x", base.ErrSdp, video.Sps, video.Pps)
	}

	lines := []string{
		"v=0",
		"o=- 0 0 IN IP4 127.0.0.1",
		"s=No Name",
		"c=IN IP4 127.0.0.1",
		"t=0 0",
		fmt.Sprintf("a=tool:%s", base.ServerName),
		fmt.Sprintf("m=video 0 RTP/AVP %d", VideoPayloadType),
		fmt.Sprintf("a=rtpmap:%d H264/90000", VideoPayloadType),
		fmt.Sprintf("a=fmtp:%d packetization-mode=1; sprop-parameter-sets=%s,%s; profile-level-id=%s",
			VideoPayloadType,
			base64.StdEncoding.EncodeToString(video.Sps),
			base64.StdEncoding.EncodeToString(video.Pps),
			ProfileLevelId(video.Sps)),
	}
	if video.Width > 0 && video.Height > 0 {
		lines = append(lines, fmt.Sprintf("a=framesize:%d %d-%d", VideoPayloadType, video.Width, video.Height))
	}
	if video.FrameRate > 0 {
		lines = append(lines, fmt.Sprintf("a=framerate:%d", video.FrameRate))
	}
	lines = append(lines, fmt.Sprintf("a=control:%s", VideoControl))

	return []byte(strings.Join(lines, "\r\n") + "\r\n"), nil
}

// ProfileLevelId sps中nal header之后的3个字节，也即profile_idc、constraint_set flags、level_idc
func ProfileLevelId(sps []byte) string {
	if len(sps) < 4 {
		return ""
	}
	return hex.EncodeToString(sps[1:4])
}
