// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtsp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/q191201771/esfeeder/pkg/base"
)

// parseRtpRtcpChannel
//
// @param transport: 比如 RTP/AVP/TCP;unicast;interleaved=0-1
func parseRtpRtcpChannel(transport string) (rtp, rtcp int, err error) {
	for _, item := range strings.Split(transport, ";") {
		item = strings.TrimSpace(item)
		if !strings.HasPrefix(item, TransportFieldInterleaved+"=") {
			continue
		}
		v := strings.TrimPrefix(item, TransportFieldInterleaved+"=")
		cs := strings.Split(v, "-")
		if rtp, err = strconv.Atoi(cs[0]); err != nil {
			break
		}
		rtcp = rtp + 1
		if len(cs) > 1 {
			if rtcp, err = strconv.Atoi(cs[1]); err != nil {
				break
			}
		}
		if rtp < 0 || rtp > 255 || rtcp < 0 || rtcp > 255 {
			break
		}
		return rtp, rtcp, nil
	}
	return 0, 0, fmt.Errorf("%w. transport=%s", base.ErrRtspUnsupportedTransport, transport)
}

// isTcpTransport RTP/AVP/TCP，或者携带了interleaved字段
func isTcpTransport(transport string) bool {
	return strings.Contains(transport, "RTP/AVP/TCP") || strings.Contains(transport, TransportFieldInterleaved)
}

func hasInterleavedField(transport string) bool {
	return strings.Contains(transport, TransportFieldInterleaved+"=")
}
