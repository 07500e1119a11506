package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Ali-Mohammed/openRadius-monitor/protocol"
)

// handleDashboardSocket upgrades a dashboard connection and dispatches its
// invocations until it drops. Group membership is per connection: leaving on
// every exit path keeps the broadcast set tight.
func (a *API) handleDashboardSocket(w http.ResponseWriter, r *http.Request) {
	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("hub: dashboard upgrade failed: %v", err)
		return
	}
	peer := newWSPeer(sock)

	stop := peer.keepalive()
	defer func() {
		stop()
		a.hub.leaveDashboard(peer)
		peer.close()
	}()

	log.Println("hub: dashboard connected")

	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("hub: dashboard socket error: %v", err)
			}
			return
		}

		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			log.Printf("hub: dashboard sent bad frame: %v", err)
			continue
		}
		a.dispatchInvocation(r, peer, env)
	}
}

func (a *API) dispatchInvocation(r *http.Request, peer *wsPeer, env protocol.Envelope) {
	switch env.Type {
	case protocol.InvokeJoinDashboard:
		a.hub.joinDashboard(peer)

	case protocol.InvokeLeaveDashboard:
		a.hub.leaveDashboard(peer)

	case protocol.InvokeGetConnectedServices:
		if err := peer.sendEvent(&protocol.InitialState{Services: a.hub.snapshot()}); err != nil {
			log.Printf("hub: snapshot reply failed: %v", err)
		}

	case protocol.InvokePingService:
		var req protocol.PingService
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			log.Printf("hub: bad PingService payload: %v", err)
			return
		}
		if err := a.hub.relayPing(req); err != nil {
			// The dashboard's own timeout reports this; nothing to send back.
			log.Printf("hub: ping relay to %s failed: %v", req.ServiceName, err)
		}

	case protocol.InvokeSendCommand:
		var req protocol.SendCommand
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			log.Printf("hub: bad SendCommand payload: %v", err)
			return
		}
		if err := a.hub.relayCommand(req); err != nil {
			log.Printf("hub: command relay to %s failed: %v", req.ServiceName, err)
		}

	case protocol.InvokeApproveService:
		var req protocol.ApproveService
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			log.Printf("hub: bad ApproveService payload: %v", err)
			return
		}
		if err := a.hub.approve(r.Context(), req.ServiceName, req.DisplayName); err != nil {
			log.Printf("hub: approve %s failed: %v", req.ServiceName, err)
		}

	case protocol.InvokeRejectService:
		var req protocol.RejectService
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			log.Printf("hub: bad RejectService payload: %v", err)
			return
		}
		if err := a.hub.reject(r.Context(), req.ServiceName); err != nil {
			log.Printf("hub: reject %s failed: %v", req.ServiceName, err)
		}

	default:
		log.Printf("hub: dashboard sent unknown invocation %q", env.Type)
	}
}
