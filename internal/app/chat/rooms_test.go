package chat

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomJoinLeaveNetEffect(t *testing.T) {
	tests := []struct {
		name   string
		ops    []string
		wantIn bool
	}{
		{name: "single join", ops: []string{"join"}, wantIn: true},
		{name: "double join", ops: []string{"join", "join"}, wantIn: true},
		{name: "leave without join", ops: []string{"leave"}, wantIn: false},
		{name: "join leave", ops: []string{"join", "leave"}, wantIn: false},
		{name: "join leave leave join", ops: []string{"join", "leave", "leave", "join"}, wantIn: true},
		{name: "join join leave", ops: []string{"join", "join", "leave"}, wantIn: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewRoomManager()
			for _, op := range tt.ops {
				if op == "join" {
					m.Join("c1", "general")
				} else {
					m.Leave("c1", "general")
				}
			}

			assert.Equal(t, tt.wantIn, m.IsIn("c1", "general"))
			if tt.wantIn {
				assert.Equal(t, []string{"c1"}, m.ConnectionsIn("general"))
				assert.Equal(t, []string{"general"}, m.ChannelsOf("c1"))
				assert.Equal(t, 1, m.RoomCount())
			} else {
				assert.Empty(t, m.ConnectionsIn("general"))
				assert.Empty(t, m.ChannelsOf("c1"))
				assert.Equal(t, 0, m.RoomCount(), "empty rooms are pruned")
			}
		})
	}
}

func TestRoomRandomSequencesMatchLastOperation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		m := NewRoomManager()
		last := ""
		for n := rng.Intn(10) + 1; n > 0; n-- {
			if rng.Intn(2) == 0 {
				m.Join("c1", "ch")
				last = "join"
			} else {
				m.Leave("c1", "ch")
				last = "leave"
			}
		}
		assert.Equal(t, last == "join", m.IsIn("c1", "ch"), "sequence %d", i)
	}
}

func TestRoomJoinReportsChange(t *testing.T) {
	m := NewRoomManager()

	assert.True(t, m.Join("c1", "a"))
	assert.False(t, m.Join("c1", "a"))
	assert.True(t, m.Leave("c1", "a"))
	assert.False(t, m.Leave("c1", "a"))
}

func TestRoomLeaveAll(t *testing.T) {
	m := NewRoomManager()
	m.Join("c1", "b")
	m.Join("c1", "a")
	m.Join("c2", "a")

	assert.Equal(t, []string{"a", "b"}, m.LeaveAll("c1"))
	assert.Empty(t, m.ChannelsOf("c1"))
	assert.Equal(t, []string{"c2"}, m.ConnectionsIn("a"))
	assert.Empty(t, m.ConnectionsIn("b"))
	assert.Equal(t, 1, m.RoomCount())

	assert.Empty(t, m.LeaveAll("c1"))
}

func TestRoomConcurrentAccess(t *testing.T) {
	m := NewRoomManager()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := fmt.Sprintf("c%d", i)
			for j := 0; j < 10; j++ {
				m.Join(conn, fmt.Sprintf("ch%d", j))
			}
			m.ConnectionsIn("ch0")
			if i%2 == 0 {
				m.LeaveAll(conn)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, m.ConnectionsIn("ch0"), 10)
	assert.Equal(t, 10, m.RoomCount())
}
