package hub

import (
	"sync"
)

// LocalPubSub is the in-process topic registry used in self-contained mode.
// Publish fans out to each subscriber's bounded queue and never blocks on a
// slow client.
type LocalPubSub struct {
	mutex   sync.RWMutex
	hashMap map[string][]int64
}

func (ps *LocalPubSub) Setup() {
	ps.hashMap = make(map[string][]int64)
}

func (ps *LocalPubSub) Subscribe(topic string, sessionID int64) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	ps.hashMap[topic] = append(ps.hashMap[topic], sessionID)
}

func (ps *LocalPubSub) Unsubscribe(topic string, sessionID int64) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	ps.unsubscribeLocked(topic, sessionID)
}

func (ps *LocalPubSub) unsubscribeLocked(topic string, sessionID int64) {
	sessionIDs := ps.hashMap[topic]

	// this won't run in case topic doesn't exist since length will be 0
	for i := range sessionIDs {
		if sessionIDs[i] == sessionID {
			sessionIDs[i] = sessionIDs[len(sessionIDs)-1]
			ps.hashMap[topic] = sessionIDs[:len(sessionIDs)-1]
			break
		}
	}

	// delete topic from map if no session is subscribed to it
	if len(ps.hashMap[topic]) == 0 {
		delete(ps.hashMap, topic)
	}
}

func (ps *LocalPubSub) UnsubscribeFromAll(sessionID int64) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	for topic := range ps.hashMap {
		ps.unsubscribeLocked(topic, sessionID)
	}
}

func (ps *LocalPubSub) Publish(topic string, frame string) {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	sessionIDs := ps.hashMap[topic]
	for i := range sessionIDs {
		client, exists := GetClient(sessionIDs[i])
		if exists {
			client.enqueue(frame)
		} else {
			sugar.Warnf("Session ID %d is supposed to be available", sessionIDs[i])
		}
	}
}
