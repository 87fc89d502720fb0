// Package logging holds logr helpers shared by the binaries.
package logging

import (
	"strings"

	"github.com/go-logr/logr"
)

// noisy lists message fragments that, when all present, mark an info
// message from a provider as noise.
var noisy = [][]string{
	{"unsupported soa record", "skipping"},
	{"root ns record supported", "no record is configured"},
}

func isNoise(msg string) bool {
	msg = strings.ToLower(msg)
	for _, fragments := range noisy {
		match := true
		for _, f := range fragments {
			if !strings.Contains(msg, f) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// SuppressNoise returns a logger that drops the info messages zone providers
// emit for SOA records and unconfigured root NS records. Errors always pass.
func SuppressNoise(log logr.Logger) logr.Logger {
	sink := log.GetSink()
	if sink == nil {
		return log
	}
	if cd, ok := sink.(logr.CallDepthLogSink); ok {
		sink = cd.WithCallDepth(1)
	}
	return log.WithSink(&noiseSink{sink: sink})
}

type noiseSink struct {
	sink logr.LogSink
}

var _ logr.CallDepthLogSink = &noiseSink{}

func (s *noiseSink) Init(info logr.RuntimeInfo) {
	s.sink.Init(info)
}

func (s *noiseSink) Enabled(level int) bool {
	return s.sink.Enabled(level)
}

func (s *noiseSink) Info(level int, msg string, keysAndValues ...any) {
	if isNoise(msg) {
		return
	}
	s.sink.Info(level, msg, keysAndValues...)
}

func (s *noiseSink) Error(err error, msg string, keysAndValues ...any) {
	s.sink.Error(err, msg, keysAndValues...)
}

func (s *noiseSink) WithValues(keysAndValues ...any) logr.LogSink {
	return &noiseSink{sink: s.sink.WithValues(keysAndValues...)}
}

func (s *noiseSink) WithName(name string) logr.LogSink {
	return &noiseSink{sink: s.sink.WithName(name)}
}

func (s *noiseSink) WithCallDepth(depth int) logr.LogSink {
	if cd, ok := s.sink.(logr.CallDepthLogSink); ok {
		return &noiseSink{sink: cd.WithCallDepth(depth)}
	}
	return s
}
