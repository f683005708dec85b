//go:build ignore

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

type Message struct {
	Type      string          `json:"type"`
	UserID    string          `json:"userId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// connects as the token's user and prints operation progress until interrupted
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/test_websocket.go <token> [host]")
		os.Exit(1)
	}

	token := os.Args[1]

	host := "localhost:8080"
	if len(os.Args) > 2 {
		host = os.Args[2]
	}

	u := url.URL{Scheme: "ws", Host: host, Path: "/api/ws"}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	fmt.Printf("Connecting to %s\n", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			var msg Message
			if err := c.ReadJSON(&msg); err != nil {
				log.Println("read:", err)
				return
			}

			fmt.Printf("[%s] %s %s\n", msg.Timestamp.Format(time.TimeOnly), msg.Type, msg.Payload)
		}
	}()

	ping := time.NewTicker(20 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-ping.C:
			if err := c.WriteJSON(map[string]string{"type": "ping"}); err != nil {
				log.Println("write:", err)
				return
			}
		case <-interrupt:
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("write close:", err)
				return
			}

			select {
			case <-done:
			case <-time.After(time.Second):
			}

			return
		}
	}
}
