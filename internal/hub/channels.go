package hub

import (
	"bytes"
	"chatcord-backend/internal/globals"
	"encoding/json"
	"fmt"
)

// Subscribe points a session at a topic. A session watches one container
// (channel or conversation) and one server at a time; subscribing to a new
// one drops the previous subscription of the same kind. Server-list topics
// accumulate since every joined server stays in view.
func Subscribe(topicKind string, id int64, sessionID int64) error {
	client, exists := GetClient(sessionID)
	if !exists {
		return fmt.Errorf("session ID [%d] tried to subscribe to topic [%s:%d] but the session isn't connected to hub", sessionID, topicKind, id)
	}

	client.mutex.Lock()
	defer client.mutex.Unlock()

	unsub := func(oldTopic string) error {
		if oldTopic == "" {
			return nil
		}
		if selfContained {
			localPubSub.Unsubscribe(oldTopic, sessionID)
			return nil
		}
		return client.PubSub.Unsubscribe(client.Ctx, oldTopic)
	}

	switch topicKind {
	case globals.TopicKindChannel, globals.TopicKindConversation:
		err := unsub(client.CurrentContainerTopic)
		if err != nil {
			return err
		}
		client.CurrentContainerTopic = topicKey(topicKind, id)
	case globals.TopicKindServer:
		if client.CurrentServerID != 0 {
			err := unsub(topicKey(globals.TopicKindServer, client.CurrentServerID))
			if err != nil {
				return err
			}
		}
		client.CurrentServerID = id
	case globals.TopicKindServerList:
		// no need to unsubscribe anything as it's a list of multiple servers constantly in view
	default:
		return fmt.Errorf("wrong topicKind [%s] was provided to Subscribe", topicKind)
	}

	newTopic := topicKey(topicKind, id)

	if selfContained {
		localPubSub.Subscribe(newTopic, sessionID)
	} else {
		err := client.PubSub.Subscribe(client.Ctx, newTopic)
		if err != nil {
			return err
		}
	}

	sugar.Debugf("Session ID %d subscribed to topic %s", sessionID, newTopic)

	return nil
}

func Unsubscribe(topicKind string, id int64, sessionID int64) error {
	client, exists := GetClient(sessionID)
	if !exists {
		return nil
	}

	client.mutex.Lock()
	defer client.mutex.Unlock()

	topic := topicKey(topicKind, id)

	if client.CurrentContainerTopic == topic {
		client.CurrentContainerTopic = ""
	}

	if selfContained {
		localPubSub.Unsubscribe(topic, sessionID)
		return nil
	}
	return client.PubSub.Unsubscribe(client.Ctx, topic)
}

// Emit fans an event out to every subscriber of a topic, in publish order.
// Callers invoke it only after the ledger write committed.
func Emit(eventType string, topicKind string, payload any, id int64) error {
	topic := topicKey(topicKind, id)

	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Grow(len(eventType) + 1 + len(jsonBytes))
	buf.WriteString(eventType)
	buf.WriteByte('\n')
	buf.Write(jsonBytes)

	sugar.Debugf("Sending %s to those on topic %s", eventType, topic)

	if selfContained {
		localPubSub.Publish(topic, buf.String())
		return nil
	}

	return redisClient.Publish(redisCtx, topic, buf.String()).Err()
}

func topicKey(topicKind string, id int64) string {
	return fmt.Sprintf("%s:%d", topicKind, id)
}
