// bidwatch tails one auction's live feed from the terminal. It joins
// the auction channel (and optionally a single lot) and prints every
// event, reconnecting with backoff when the connection drops.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
)

type state int

const (
	stateDisconnected state = iota
	stateConnecting
	stateConnected
	stateReconnecting
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

func main() {
	server := flag.String("server", getenv("SERVER", "ws://localhost:8080"), "server base URL")
	auctionID := flag.String("auction", "", "auction id to watch (required)")
	lotNumber := flag.Int("lot", 0, "lot number to follow (0 = auction feed only)")
	flag.Parse()

	if *auctionID == "" {
		log.Fatal("-auction is required")
	}
	url := *server + "/ws?auction=" + *auctionID

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := stateDisconnected
	backoff := initialBackoff
	for {
		switch st {
		case stateDisconnected, stateReconnecting:
			if st == stateReconnecting {
				log.Printf("reconnecting in %s", backoff)
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return
				}
				backoff = min(backoff*2, maxBackoff)
			}
			st = stateConnecting

		case stateConnecting:
			conn, _, err := websocket.Dial(ctx, url, nil)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("dial failed: %v", err)
				st = stateReconnecting
				continue
			}
			log.Printf("connected to %s", url)
			backoff = initialBackoff
			st = stateConnected

			watch(ctx, conn, *lotNumber)
			conn.Close(websocket.StatusNormalClosure, "")
			if ctx.Err() != nil {
				return
			}
			st = stateReconnecting
		}
	}
}

// watch runs one connection until it drops. Rejoining the lot after a
// reconnect is what makes the snapshot-on-join guarantee useful here.
func watch(ctx context.Context, conn *websocket.Conn, lotNumber int) {
	if lotNumber > 0 {
		join, _ := json.Marshal(map[string]any{
			"type":       "JoinLot",
			"lot_number": lotNumber,
		})
		if err := conn.Write(ctx, websocket.MessageText, join); err != nil {
			log.Printf("join failed: %v", err)
			return
		}
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("connection lost: %v", err)
			}
			return
		}
		dump(data)
	}
}

func dump(data []byte) {
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("unparseable message: %s", data)
		return
	}
	t, _ := msg["type"].(string)
	delete(msg, "type")
	compact, _ := json.Marshal(msg)
	log.Printf("%-20s %s", t, compact)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
