// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/q191201771/esfeeder/pkg/base"
	"github.com/q191201771/esfeeder/pkg/logic"
	"github.com/q191201771/naza/pkg/bininfo"
)

func main() {
	confFile, modConfig := parseFlag()

	if err := logic.Init(confFile, modConfig); err != nil {
		logic.Log.Errorf("init failed. err=%+v", err)
		logic.Dispose()
		base.OsExitAndWaitPressIfWindows(1)
	}
	if err := logic.RunLoop(); err != nil {
		logic.Log.Errorf("run loop failed. err=%+v", err)
		base.OsExitAndWaitPressIfWindows(1)
	}
}

func parseFlag() (string, logic.ModConfig) {
	binInfoFlag := flag.Bool("v", false, "show bin info")
	cf := flag.String("c", "", "specify conf file")
	port := flag.Int("p", 0, "rtsp listen port, override conf")
	mount := flag.String("m", "", "rtsp mount path, override conf")
	input := flag.String("i", "", "input file, raw h264 or mpegts, override conf")
	flag.Parse()
	if *binInfoFlag {
		_, _ = fmt.Fprint(os.Stderr, bininfo.StringifyMultiLine())
		_, _ = fmt.Fprintln(os.Stderr, base.FullInfo)
		os.Exit(0)
	}
	if *cf == "" && *input == "" {
		flag.Usage()
		_, _ = fmt.Fprintf(os.Stderr, `
Example:
  ./bin/esfeeder -c ./conf/esfeeder.conf.json
  ./bin/esfeeder -i ./testdata/test.h264 -p 8554 -m /test

Play:
  ffplay rtsp://127.0.0.1:8554/test
`)
		os.Exit(1)
	}

	return *cf, func(config *logic.Config) {
		if *port != 0 {
			config.RtspConfig.Addr = fmt.Sprintf(":%d", *port)
		}
		if *mount != "" {
			config.RtspConfig.Mount = *mount
		}
		if *input != "" {
			config.SourceConfig.Filename = *input
		}
	}
}
