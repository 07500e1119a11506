package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Ali-Mohammed/openRadius-monitor/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The hub sits behind the backend network; origin checks belong to
		// the reverse proxy.
		return true
	},
}

// handleServiceSocket upgrades a service connection and pumps its frames
// into the hub until it drops.
func (a *API) handleServiceSocket(w http.ResponseWriter, r *http.Request) {
	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("hub: service upgrade failed: %v", err)
		return
	}
	peer := newWSPeer(sock)

	// The first frame must be a registration.
	sock.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, data, err := sock.ReadMessage()
	if err != nil {
		peer.close()
		return
	}
	env, err := protocol.DecodeEnvelope(data)
	if err != nil || env.Type != protocol.FrameRegister {
		log.Printf("hub: expected Register frame, got %q", env.Type)
		peer.close()
		return
	}
	var reg protocol.Register
	if err := json.Unmarshal(env.Payload, &reg); err != nil {
		log.Printf("hub: bad Register payload: %v", err)
		peer.close()
		return
	}

	sess, err := a.hub.registerService(r.Context(), reg, peer)
	if err != nil {
		log.Printf("hub: registration refused: %v", err)
		peer.close()
		return
	}

	stop := peer.keepalive()
	defer func() {
		stop()
		a.hub.unregisterService(sess)
		peer.close()
	}()

	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("hub: service %s socket error: %v", reg.ServiceName, err)
			}
			return
		}

		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			log.Printf("hub: service %s sent bad frame: %v", reg.ServiceName, err)
			continue
		}

		switch env.Type {
		case protocol.FrameHeartbeat:
			var hb protocol.Heartbeat
			if err := json.Unmarshal(env.Payload, &hb); err == nil {
				a.hub.handleHeartbeat(sess, hb)
			}
		case protocol.FrameActivity:
			var act protocol.Activity
			if err := json.Unmarshal(env.Payload, &act); err == nil {
				a.hub.handleActivity(sess, act)
			}
		case protocol.FrameLog:
			var entry protocol.Log
			if err := json.Unmarshal(env.Payload, &entry); err == nil {
				a.hub.handleLog(sess, entry)
			}
		case protocol.FramePong:
			var pong protocol.Pong
			if err := json.Unmarshal(env.Payload, &pong); err == nil {
				a.hub.handlePong(sess, pong)
			}
		default:
			log.Printf("hub: service %s sent unknown frame %q", reg.ServiceName, env.Type)
		}
	}
}
