package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/rexliu/talkliner/pkg/channel"
	"github.com/rexliu/talkliner/pkg/ipc"
)

// ListChannels returns the installed channel names.
func ListChannels(inv Invoker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{"channels": inv.Channels()})
	}
}

// ListMethods returns the methods answered on one channel.
func ListMethods(inv Invoker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "channel")
		methods := inv.Methods(name)
		if methods == nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, channel.Errorf(channel.CodeNotImplemented, "No handler registered for channel "+name, nil))
			return
		}
		render.JSON(w, r, map[string]any{"channel": name, "methods": methods})
	}
}

// InvokeMethod delivers the request body as call arguments.
func InvokeMethod(log *slog.Logger, inv Invoker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetReqID(r.Context())
		body, err := io.ReadAll(io.LimitReader(r.Body, ipc.MaxFrameSize+1))
		if err != nil || len(body) > ipc.MaxFrameSize {
			writeResponse(w, r, ipc.Response{ID: id, Error: channel.Errorf(channel.CodeInvalidRequest, "unreadable body", nil)})
			return
		}
		var args json.RawMessage
		if len(body) > 0 {
			if !json.Valid(body) {
				writeResponse(w, r, ipc.Response{ID: id, Error: channel.Errorf(channel.CodeInvalidRequest, "arguments must be JSON", nil)})
				return
			}
			args = body
		}
		call := channel.Call{Method: chi.URLParam(r, "method"), Arguments: args}
		res, ev := inv.Invoke(r.Context(), chi.URLParam(r, "channel"), call)
		if !res.OK {
			log.Debug("call failed",
				slog.String("channel", ev.Channel),
				slog.String("method", ev.Method),
				slog.String("code", ev.Code),
			)
		}
		writeResponse(w, r, ipc.NewResponse(id, ev.TraceID, res))
	}
}

func writeResponse(w http.ResponseWriter, r *http.Request, resp ipc.Response) {
	render.Status(r, statusFor(resp))
	render.JSON(w, r, resp)
}

func statusFor(resp ipc.Response) int {
	if resp.OK {
		return http.StatusOK
	}
	if resp.Error == nil {
		return http.StatusInternalServerError
	}
	switch resp.Error.Code {
	case channel.CodeNotImplemented:
		return http.StatusNotFound
	case channel.CodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
