// SPDX-License-Identifier: MIT
package transport

import (
	applog "paraeq/internal/log"
)

// LoggingTransport writes a one-line summary of every frame at debug level.
// It is the fallback when no network transport is configured.
type LoggingTransport struct{}

func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the frame summary. Non-frame data is logged by type.
func (lt *LoggingTransport) Send(data any) error {
	f, ok := asFrame(data)
	if !ok {
		applog.Debugf("Transport: Received %T", data)
		return nil
	}

	points := 0
	for _, c := range f.Curves {
		points += len(c)
	}
	applog.Debugf("Transport: Frame %d (%d channels, %d points, %d response points)",
		f.Seq, len(f.Curves), points, len(f.Response))
	return nil
}

func (lt *LoggingTransport) Close() error {
	applog.Debugf("Transport: LoggingTransport closed")
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
