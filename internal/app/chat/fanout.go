package chat

// broadcaster delivers encoded frames to the sessions in a room. Delivery is a
// non-blocking queue operation per session, so a pass never waits on I/O.
type broadcaster struct {
	sessions *SessionRegistry
	rooms    *RoomManager
}

// toRoom delivers frame to every session in the channel's room for which skip
// returns false, and returns the number of sessions that accepted it.
func (b *broadcaster) toRoom(channelID string, frame []byte, skip func(*Session) bool) int {
	delivered := 0
	for _, connID := range b.rooms.ConnectionsIn(channelID) {
		sess, ok := b.sessions.Lookup(connID)
		if !ok {
			continue
		}
		if skip != nil && skip(sess) {
			continue
		}
		if sess.Deliver(frame) {
			delivered++
		}
	}
	return delivered
}
