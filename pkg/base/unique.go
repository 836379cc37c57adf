// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "github.com/q191201771/naza/pkg/unique"

const (
	UkPreFeeder                   = "FEEDER"
	UkPreRtspServerCommandSession = "RTSPSRVCMD"
	UkPreRtspSubSession           = "RTSPSUB"
)

func GenUkFeeder() string {
	return siUkFeeder.GenUniqueKey()
}

func GenUkRtspServerCommandSession() string {
	return siUkRtspServerCommandSession.GenUniqueKey()
}

func GenUkRtspSubSession() string {
	return siUkRtspSubSession.GenUniqueKey()
}

var (
	siUkFeeder                   *unique.SingleGenerator
	siUkRtspServerCommandSession *unique.SingleGenerator
	siUkRtspSubSession           *unique.SingleGenerator
)

func init() {
	siUkFeeder = unique.NewSingleGenerator(UkPreFeeder)
	siUkRtspServerCommandSession = unique.NewSingleGenerator(UkPreRtspServerCommandSession)
	siUkRtspSubSession = unique.NewSingleGenerator(UkPreRtspSubSession)
}
