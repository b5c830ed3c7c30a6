package chat

import (
	"sort"
	"sync"

	"teamchat/internal/pkg/metrics"
)

// RoomManager tracks which connections are subscribed to which channel.
// Rooms exist only while they have at least one connection; nothing is persisted.
type RoomManager struct {
	mu sync.RWMutex

	// rooms maps channel ID to the set of joined connection IDs.
	rooms map[string]map[string]struct{}

	// joined maps connection ID to the set of channel IDs it is in.
	joined map[string]map[string]struct{}
}

// NewRoomManager creates an empty RoomManager.
func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]map[string]struct{}),
		joined: make(map[string]map[string]struct{}),
	}
}

// Join adds connID to the channel's room. It returns false if it was already there.
func (m *RoomManager) Join(connID, channelID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[channelID]
	if !ok {
		room = make(map[string]struct{})
		m.rooms[channelID] = room
	}
	if _, in := room[connID]; in {
		return false
	}
	room[connID] = struct{}{}

	channels, ok := m.joined[connID]
	if !ok {
		channels = make(map[string]struct{})
		m.joined[connID] = channels
	}
	channels[channelID] = struct{}{}

	metrics.ActiveRooms.Set(float64(len(m.rooms)))
	return true
}

// Leave removes connID from the channel's room. It returns false if it was not there.
func (m *RoomManager) Leave(connID, channelID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.removeLocked(connID, channelID) {
		return false
	}
	metrics.ActiveRooms.Set(float64(len(m.rooms)))
	return true
}

// LeaveAll removes connID from every room and returns the channels it left, sorted.
func (m *RoomManager) LeaveAll(connID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	left := sortedKeys(m.joined[connID])
	for _, channelID := range left {
		m.removeLocked(connID, channelID)
	}
	metrics.ActiveRooms.Set(float64(len(m.rooms)))
	return left
}

func (m *RoomManager) removeLocked(connID, channelID string) bool {
	room, ok := m.rooms[channelID]
	if !ok {
		return false
	}
	if _, in := room[connID]; !in {
		return false
	}

	delete(room, connID)
	if len(room) == 0 {
		delete(m.rooms, channelID)
	}

	if channels, ok := m.joined[connID]; ok {
		delete(channels, channelID)
		if len(channels) == 0 {
			delete(m.joined, connID)
		}
	}
	return true
}

// ConnectionsIn returns the connection IDs in the channel's room, sorted.
func (m *RoomManager) ConnectionsIn(channelID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.rooms[channelID])
}

// ChannelsOf returns the channels connID has joined, sorted.
func (m *RoomManager) ChannelsOf(connID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.joined[connID])
}

// IsIn reports whether connID is in the channel's room.
func (m *RoomManager) IsIn(connID, channelID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.rooms[channelID][connID]
	return ok
}

// RoomCount returns the number of non-empty rooms.
func (m *RoomManager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
