package main

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Ali-Mohammed/openRadius-monitor/protocol"
)

const (
	writeTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
	pingPeriod   = 30 * time.Second
)

// wsPeer wraps a websocket connection with serialized writes.
type wsPeer struct {
	sock    *websocket.Conn
	writeMu sync.Mutex
}

func newWSPeer(sock *websocket.Conn) *wsPeer {
	return &wsPeer{sock: sock}
}

func (p *wsPeer) send(msgType string, payload any) error {
	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		return err
	}
	return p.write(data)
}

func (p *wsPeer) sendEvent(ev protocol.Event) error {
	data, err := protocol.EncodeEvent(ev)
	if err != nil {
		return err
	}
	return p.write(data)
}

func (p *wsPeer) write(data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.sock.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.sock.WriteMessage(websocket.TextMessage, data)
}

func (p *wsPeer) close() {
	p.sock.Close()
}

// keepalive configures pong-based dead peer detection and starts the ping
// ticker. The returned stop func must run before the read pump exits.
func (p *wsPeer) keepalive() (stop func()) {
	p.sock.SetReadDeadline(time.Now().Add(readTimeout))
	p.sock.SetPongHandler(func(string) error {
		p.sock.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p.writeMu.Lock()
				p.sock.SetWriteDeadline(time.Now().Add(writeTimeout))
				err := p.sock.WriteMessage(websocket.PingMessage, nil)
				p.writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()
	return func() { close(done) }
}
