// Package main runs a demo WebSocket client for solve events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const demoSolve = `{
  "name": "ws-demo",
  "demandPoints": [
    {"id":"P1","x":0,"y":0,"demand":120},
    {"id":"P2","x":4,"y":1,"demand":80},
    {"id":"P3","x":9,"y":9,"demand":300}
  ],
  "facilityLocations": [{"id":"L1","x":1,"y":1},{"id":"L2","x":8,"y":8}]
}`

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Connect WS first so the solve event is not missed
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/ws"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	hdr.Set("X-Role", "viewer")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s %s: %s", m.Type, m.Event, string(m.Payload))
			if m.Type == "event" {
				return
			}
		}
	}()

	// Trigger a solve event
	time.Sleep(200 * time.Millisecond)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/solve", bytes.NewReader([]byte(demoSolve)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	req.Header.Set("X-Role", "planner")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	var out struct {
		SolveID string `json:"solveId"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	_ = resp.Body.Close()
	log.Printf("Solve ID: %s (HTTP %d)", out.SolveID, resp.StatusCode)

	select {
	case <-time.After(3 * time.Second):
		log.Print("no event received")
	case <-done:
	}
}
