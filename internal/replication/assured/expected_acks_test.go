package assured

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
)

var testCSN = common.NewCSN(0x18c4f2a1b30, 7, 1)

func TestSafeData_CompletesAtLevel(t *testing.T) {
	e := NewSafeData(testCSN, 1, 3, []int{101, 102, 103})

	assert.False(t, e.ProcessAck(101, protocol.NewAckMsg(testCSN)))
	assert.False(t, e.ProcessAck(101, protocol.NewAckMsg(testCSN)), "repeated ack")
	assert.False(t, e.ProcessAck(999, protocol.NewAckMsg(testCSN)), "unexpected server")
	assert.True(t, e.ProcessAck(103, protocol.NewAckMsg(testCSN)))

	final := e.Complete(false)
	assert.Equal(t, protocol.NewAckMsg(testCSN), final)
	assert.Nil(t, e.Complete(true))
	assert.True(t, e.IsCompleted())
	assert.False(t, e.ProcessAck(102, protocol.NewAckMsg(testCSN)))
}

func TestSafeData_IgnoresAckErrors(t *testing.T) {
	e := NewSafeData(testCSN, 1, 2, []int{101})

	assert.True(t, e.ProcessAck(101, &protocol.AckMsg{CSN: testCSN, HasReplayError: true, FailedServers: []int{5}}))
	assert.False(t, e.Complete(false).HasErrors())
}

func TestSafeData_Timeout(t *testing.T) {
	e := NewSafeData(testCSN, 1, 3, []int{101, 102, 103})
	e.ProcessAck(102, protocol.NewAckMsg(testCSN))

	assert.Equal(t, []int{101, 103}, e.TimeoutServers())
	assert.Equal(t, &protocol.AckMsg{
		CSN:           testCSN,
		HasTimeout:    true,
		FailedServers: []int{101, 103},
	}, e.Complete(true))
}

func TestSafeRead_AggregatesErrors(t *testing.T) {
	e := NewSafeRead(testCSN, 1, []int{2, 3, 101}, []int{4})

	assert.False(t, e.ProcessAck(2, protocol.NewAckMsg(testCSN)))
	assert.False(t, e.ProcessAck(3, &protocol.AckMsg{CSN: testCSN, HasReplayError: true, FailedServers: []int{3}}))
	assert.True(t, e.ProcessAck(101, &protocol.AckMsg{CSN: testCSN, HasTimeout: true, FailedServers: []int{6, 3}}))

	assert.Equal(t, &protocol.AckMsg{
		CSN:            testCSN,
		HasTimeout:     true,
		HasWrongStatus: true,
		HasReplayError: true,
		FailedServers:  []int{4, 3, 6},
	}, e.Complete(false))
}

func TestSafeRead_Timeout(t *testing.T) {
	e := NewSafeRead(testCSN, 1, []int{2, 3}, nil)
	e.ProcessAck(3, protocol.NewAckMsg(testCSN))

	assert.Equal(t, &protocol.AckMsg{
		CSN:           testCSN,
		HasTimeout:    true,
		FailedServers: []int{2},
	}, e.Complete(true))
}

func TestExpectedAcks_Accessors(t *testing.T) {
	e := NewSafeRead(testCSN, 9, []int{2, 3}, nil)
	assert.Equal(t, testCSN, e.CSN())
	assert.Equal(t, common.SafeReadMode, e.Mode())
	assert.Equal(t, 9, e.Requester())

	servers := e.Servers()
	servers[0] = 42
	assert.Equal(t, []int{2, 3}, e.Servers())
}
