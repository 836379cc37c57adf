// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

//go:build linux || darwin || netbsd || freebsd || openbsd || dragonfly
// +build linux darwin netbsd freebsd openbsd dragonfly

package base

import (
	"os"
	"testing"
	"time"

	"github.com/q191201771/naza/pkg/assert"
)

func TestRunSignalHandler(t *testing.T) {
	done := make(chan struct{})
	go RunSignalHandler(func() {
		close(done)
	})

	p, err := os.FindProcess(os.Getpid())
	assert.Equal(t, nil, err)

	// 等待signal.Notify生效后再发送，未生效时SIGINT会直接结束进程
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, nil, p.Signal(os.Interrupt))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("signal handler not called")
	}
}
