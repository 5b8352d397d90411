// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package apitest

import (
	"github.com/rs/zerolog"

	"github.com/apitestutils/apitest/request"
	"github.com/apitestutils/apitest/retry"
	"github.com/apitestutils/apitest/transient"
)

// LogHandler returns a handler writing one structured log line per
// event to logger. Attempts are logged at debug level, retries at info,
// timeouts and failed attempts at warn and retry exhaustion at error.
func LogHandler(logger zerolog.Logger) Handler {
	return HandlerFunc(func(evt Event, e *request.Execution) {
		var ev *zerolog.Event
		msg := ""
		switch evt {
		case BeforeAttempt:
			ev, msg = logger.Debug(), "sending request"
		case AfterAttemptTimeout:
			ev, msg = logger.Warn().Err(e.Err), "attempt timed out"
		case AfterAttempt:
			if e.Err != nil {
				ev = logger.Warn().Err(e.Err).Stringer("transient", transient.Categorize(e.Err))
			} else {
				ev = logger.Debug()
			}
			ev, msg = ev.Int("bytes", len(e.Body)), "attempt finished"
			if n := len(e.Redirects); n > 0 {
				ev = ev.Int("redirects", n)
			}
		case BeforeRetryWait:
			ev, msg = logger.Info().Dur("wait", e.Wait), "retrying"
		case AfterRetryExhausted:
			ev, msg = logger.Error(), retry.ExhaustedMsg
		case AfterPlanTimeout:
			ev, msg = logger.Warn(), "plan deadline exceeded"
		case AfterExecutionEnd:
			ev, msg = logger.Debug().Int("attempts", e.Attempts()).Dur("duration", e.Duration()), "request finished"
		default:
			return
		}
		logFields(ev, e).Msg(msg)
	})
}

func logFields(ev *zerolog.Event, e *request.Execution) *zerolog.Event {
	if e.Plan != nil {
		ev = ev.Str("method", e.Plan.Method)
		if e.Plan.URL != nil {
			ev = ev.Str("url", e.Plan.URL.String())
		}
	}
	ev = ev.Int("attempt", e.Attempt)
	if code := e.StatusCode(); code != 0 {
		ev = ev.Int("status", code)
	}
	if id := CorrelationID(e); id != "" {
		ev = ev.Str("correlation_id", id)
	}
	return ev
}

// Log installs LogHandler(logger) on every event it logs.
func (g *HandlerGroup) Log(logger zerolog.Logger) {
	h := LogHandler(logger)
	for _, evt := range Events() {
		switch evt {
		case BeforeExecutionStart, BeforeReadBody:
		default:
			g.PushBack(evt, h)
		}
	}
}
