// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/q191201771/esfeeder/pkg/feed"
)

const metricsNamespace = "esfeeder"

type Metrics struct {
	// source
	SourceFrames       prometheus.Gauge
	SourceKeyframes    prometheus.Gauge
	SourceDroppedUnits prometheus.Gauge

	// session
	ActiveSessions prometheus.Gauge
	TotalSessions  prometheus.Counter
	EndOfStreams   prometheus.Counter

	// frame
	FramesEmitted         *prometheus.CounterVec
	BytesEmitted          prometheus.Counter
	FramesDroppedAtGating prometheus.Counter
}

// NewMetrics 所有指标注册到<reg>中
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SourceFrames: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "source_frames",
			Help:      "Number of access units in the frame store",
		}),
		SourceKeyframes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "source_keyframes",
			Help:      "Number of keyframes in the frame store",
		}),
		SourceDroppedUnits: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "source_dropped_units",
			Help:      "Number of malformed access units dropped at ingestion",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_sessions",
			Help:      "Number of currently playing sessions",
		}),
		TotalSessions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_total",
			Help:      "Total number of sessions started since server start",
		}),
		EndOfStreams: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "end_of_streams_total",
			Help:      "Total number of sessions that reached end of stream",
		}),
		FramesEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_emitted_total",
			Help:      "Total number of frames emitted to sessions",
		}, []string{"keyframe"}),
		BytesEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bytes_emitted_total",
			Help:      "Total number of payload bytes emitted to sessions, param sets included",
		}),
		FramesDroppedAtGating: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_dropped_at_gating_total",
			Help:      "Total number of leading non-keyframes skipped before the first keyframe",
		}),
	}
}

func (m *Metrics) observeSource(source *feed.Source) {
	m.SourceFrames.Set(float64(source.Store.Len()))
	m.SourceKeyframes.Set(float64(source.Store.KeyframeCount()))
	m.SourceDroppedUnits.Set(float64(source.DroppedCount))
}

// metricsSink 包装 feed.Sink ，统计输出的帧
type metricsSink struct {
	sink    feed.Sink
	metrics *Metrics
	eosOnce sync.Once
}

func newMetricsSink(sink feed.Sink, metrics *Metrics) *metricsSink {
	return &metricsSink{
		sink:    sink,
		metrics: metrics,
	}
}

func (s *metricsSink) OnFrame(frame feed.Frame) error {
	if err := s.sink.OnFrame(frame); err != nil {
		return err
	}
	s.metrics.FramesEmitted.WithLabelValues(strconv.FormatBool(frame.IsKeyframe)).Inc()
	s.metrics.BytesEmitted.Add(float64(len(frame.Payload)))
	return nil
}

func (s *metricsSink) OnEndOfStream() {
	s.eosOnce.Do(func() {
		s.metrics.EndOfStreams.Inc()
	})
	s.sink.OnEndOfStream()
}
