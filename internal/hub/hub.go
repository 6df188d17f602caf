package hub

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"chatcord-backend/internal/keyValue"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// outboundQueueSize bounds each client's delivery queue. When it overflows
// the event is dropped for that client only and a Resync frame follows once
// the queue drains; the publisher never waits.
const outboundQueueSize = 64

type Client struct {
	SessionID int64
	ProfileID int64
	Conn      *websocket.Conn

	// one container (channel or conversation) and one server in view at a
	// time, plus the always-on server list
	CurrentContainerTopic string
	CurrentServerID       int64

	PubSub *redis.PubSub
	Ctx    context.Context
	cancel context.CancelFunc

	// send is never closed: publishers may still hold a reference to a
	// disconnected client, so late frames land in the queue and get
	// collected with it. The writer exits on Ctx instead.
	send        chan string
	needsResync atomic.Bool
	mutex       sync.Mutex
}

// enqueue hands a frame to the client's writer without ever blocking the
// publisher. A full queue drops the frame and flags the client for resync.
func (c *Client) enqueue(frame string) {
	select {
	case c.send <- frame:
	default:
		c.needsResync.Store(true)
	}
}

var clients = make(map[int64]*Client)
var clientsMutex sync.Mutex

var sugar *zap.SugaredLogger
var redisClient *redis.Client
var localPubSub LocalPubSub
var selfContained = true

var redisCtx = context.Background()

func Setup(_sugar *zap.SugaredLogger, _redisClient *redis.Client, _selfContained bool) {
	sugar = _sugar
	redisClient = _redisClient
	selfContained = _selfContained

	localPubSub.Setup()
}

func HandleClient(w http.ResponseWriter, r *http.Request, profileID int64) {
	sugar.Debugf("Connecting profile ID [%d] to WebSocket", profileID)

	sessionCookie, err := r.Cookie("session")
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "No session cookie was provided", http.StatusUnauthorized)
		return
	}

	sessionID, err := strconv.ParseInt(sessionCookie.Value, 10, 64)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "Session cookie is in improper format", http.StatusBadRequest)
		return
	}

	// each minted session id is good for exactly one connection
	claimed, err := keyValue.GetDel(keyValue.PendingSessionKey(sessionID))
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	if claimed == "" {
		http.Error(w, "Session is unknown or was already used", http.StatusUnauthorized)
		return
	}

	var upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sugar.Error(err)
		return
	}
	defer conn.Close()

	clientCtx, cancel := context.WithCancel(context.Background())

	client := &Client{
		SessionID: sessionID,
		ProfileID: profileID,
		Conn:      conn,
		Ctx:       clientCtx,
		cancel:    cancel,
		send:      make(chan string, outboundQueueSize),
	}

	if !selfContained {
		pubsub := redisClient.Subscribe(clientCtx)
		client.PubSub = pubsub

		// redis delivers per-client; forward into the same bounded queue
		// the local mode uses
		go func() {
			msgCh := pubsub.Channel()
			for {
				select {
				case <-clientCtx.Done():
					return
				case msg, ok := <-msgCh:
					if !ok {
						return
					}
					client.enqueue(msg.Payload)
				}
			}
		}()
	}

	setClient(sessionID, client)
	go client.writeLoop()

	// incoming frames are ignored, the read loop only notices disconnects
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			sugar.Debugf("Session ID [%d] disconnected: %v", sessionID, err)
			break
		}
	}

	client.shutdown()
}

// shutdown unregisters the client and stops its writer and, in redis mode,
// the pubsub forwarder. The send queue stays open throughout: a publisher
// that grabbed the client just before removal enqueues into a queue nobody
// reads anymore, which is harmless.
func (c *Client) shutdown() {
	deleteClient(c.SessionID)
	if selfContained {
		localPubSub.UnsubscribeFromAll(c.SessionID)
	}
	c.cancel()
	if c.PubSub != nil {
		if err := c.PubSub.Close(); err != nil {
			sugar.Debug(err)
		}
	}
}

// writeLoop is the only goroutine touching the websocket conn. After the
// queue drains it delivers the pending Resync frame, if any.
func (c *Client) writeLoop() {
	for {
		var frame string
		select {
		case <-c.Ctx.Done():
			return
		case frame = <-c.send:
		}

		err := c.Conn.WriteMessage(websocket.TextMessage, []byte(frame))
		if err != nil {
			sugar.Debug(err)
			return
		}

		if len(c.send) == 0 && c.needsResync.CompareAndSwap(true, false) {
			err = c.Conn.WriteMessage(websocket.TextMessage, []byte(Resync+"\n{}"))
			if err != nil {
				sugar.Debug(err)
				return
			}
		}
	}
}

func setClient(sessionID int64, client *Client) {
	sugar.Debugf("Adding profile ID [%d] to clients as session ID [%d]", client.ProfileID, sessionID)
	clientsMutex.Lock()
	defer clientsMutex.Unlock()

	clients[sessionID] = client
}

func deleteClient(sessionID int64) {
	sugar.Debugf("Removing session ID [%d] from clients", sessionID)
	clientsMutex.Lock()
	defer clientsMutex.Unlock()

	delete(clients, sessionID)
}

func GetClient(sessionID int64) (*Client, bool) {
	clientsMutex.Lock()
	defer clientsMutex.Unlock()

	client, exists := clients[sessionID]
	return client, exists
}
