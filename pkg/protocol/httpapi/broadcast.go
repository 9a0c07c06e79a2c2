package httpapi

import (
	"encoding/json"
	"net/http"

	"meshrelay.dev/pkg/app/instance"
	"meshrelay.dev/pkg/encoders/event"
	"meshrelay.dev/pkg/utils/chk"
	"meshrelay.dev/pkg/utils/log"
)

type broadcastRequest struct {
	Event      *event.E `json:"event"`
	SourceDoID string   `json:"sourceDoId"`
}

type broadcastResponse struct {
	Success   bool `json:"success"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// BroadcastHandler implements the internal sibling-broadcast endpoint
// (§6): POST /do-broadcast, body {event, sourceDoId}, replying
// {success:true} or {success:true, duplicate:true}, or HTTP 500 with
// {success:false} on exception. When a broadcast secret is configured, a
// call whose X-Broadcast-Secret header does not match it gets HTTP 401
// with {success:false}.
func BroadcastHandler(inst *instance.Instance) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret := inst.Config.BroadcastSecret; secret != "" && r.Header.Get("X-Broadcast-Secret") != secret {
			writeBroadcastResult(w, http.StatusUnauthorized, broadcastResponse{Success: false})
			return
		}
		var req broadcastRequest
		if err := json.NewDecoder(r.Body).Decode(&req); chk.E(err) || req.Event == nil {
			writeBroadcastResult(w, http.StatusInternalServerError, broadcastResponse{Success: false})
			return
		}
		dup := inst.Fabric.ReceiveBroadcast(req.Event, req.SourceDoID)
		writeBroadcastResult(w, http.StatusOK, broadcastResponse{Success: true, Duplicate: dup})
	}
}

func writeBroadcastResult(w http.ResponseWriter, status int, resp broadcastResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.E.F("failed to encode broadcast response: %v", err)
	}
}
