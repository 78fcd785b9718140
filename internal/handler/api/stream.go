package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"AstroOverlap/internal/domain/models"
	"AstroOverlap/internal/service/metrics"
	xhttp "AstroOverlap/pkg/http"
	applogger "AstroOverlap/pkg/logger"
)

const (
	streamBuffer       = 256
	streamWriteTimeout = 10 * time.Second
	defaultEvery       = 144
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// StreamFrame is one websocket message of the trace stream.
type StreamFrame struct {
	Type    string                  `json:"type"`
	Event   *models.TraceEvent      `json:"event,omitempty"`
	Result  *models.OverlapResponse `json:"result,omitempty"`
	Error   string                  `json:"error,omitempty"`
	Dropped int64                   `json:"dropped,omitempty"`
}

// Stream upgrades to a websocket, reads one OverlapRequest and streams the scan
// as it runs: every Nth sample (?every=, default 144), all entries and exits,
// then the result. Samples are dropped rather than stall the scan when the
// client reads slowly; entries and exits are never dropped.
func (h *OverlapHandler) Stream(c echo.Context) error {
	every := int64(xhttp.QueryInt(c, "every", defaultEvery))
	if every < 1 {
		every = 1
	}
	if !h.allow(c) {
		metrics.APIErrors.WithLabelValues("stream", "rate_limited").Inc()
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many overlap requests"))
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("stream upgrade failed", applogger.Error(err))
		return nil
	}
	defer conn.Close()
	metrics.StreamSessions.Inc()
	defer metrics.StreamSessions.Dec()

	var req models.OverlapRequest
	if err := conn.ReadJSON(&req); err != nil {
		writeFrame(conn, StreamFrame{Type: "error", Error: "invalid request: " + err.Error()})
		return nil
	}
	if err := xhttp.Validate(c.Request().Context(), &req); err != nil {
		writeFrame(conn, StreamFrame{Type: "error", Error: err.Error()})
		return nil
	}
	q, err := h.engine.Resolve(&req)
	if err != nil {
		writeFrame(conn, StreamFrame{Type: "error", Error: err.Error()})
		return nil
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	// a read error means the client went away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	events := make(chan models.TraceEvent, streamBuffer)
	var dropped int64
	trace := func(ev models.TraceEvent) {
		if ev.Kind == models.TraceSample {
			if ev.Step%every != 0 {
				return
			}
			select {
			case events <- ev:
			default:
				dropped++
			}
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}
	if len(q.Targets) > 1 {
		// parallel searches call trace concurrently
		trace = lockedTrace(trace)
	}

	type outcome struct {
		res *models.OverlapResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := h.engine.Compute(ctx, q, trace)
		done <- outcome{res, err}
		close(events)
	}()

	alive := true
	for ev := range events {
		if !alive {
			continue
		}
		if err := writeFrame(conn, StreamFrame{Type: "trace", Event: &ev}); err != nil {
			alive = false
			cancel()
		}
	}
	out := <-done
	if !alive {
		return nil
	}
	if out.err != nil {
		metrics.APIErrors.WithLabelValues("stream", errorKind(out.err)).Inc()
		writeFrame(conn, StreamFrame{Type: "error", Error: out.err.Error(), Dropped: dropped})
		return nil
	}
	writeFrame(conn, StreamFrame{
		Type:    "result",
		Result:  &models.OverlapResponse{ID: req.ID, Result: out.res},
		Dropped: dropped,
	})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(time.Second))
	return nil
}

func writeFrame(conn *websocket.Conn, f StreamFrame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func lockedTrace(fn models.TraceFunc) models.TraceFunc {
	sem := make(chan struct{}, 1)
	return func(ev models.TraceEvent) {
		sem <- struct{}{}
		defer func() { <-sem }()
		fn(ev)
	}
}
