package assured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
)

const testGen = 4242

var testDomain = Domain{GroupID: 1, GenerationID: testGen}

func ds(id int, group int8, status common.ServerStatus) Server {
	return Server{ID: id, GroupID: group, GenerationID: testGen, Status: status, DataServer: true}
}

func rs(id int, group int8, gen int64) Server {
	return Server{ID: id, GroupID: group, GenerationID: gen, Status: common.NormalStatus}
}

func safeData(level byte) protocol.UpdateHeader {
	return protocol.UpdateHeader{CSN: testCSN, Assured: true, AssuredMode: common.SafeDataMode, SafeDataLevel: level}
}

func safeRead() protocol.UpdateHeader {
	return protocol.UpdateHeader{CSN: testCSN, Assured: true, AssuredMode: common.SafeReadMode}
}

func TestPrepare_SafeData(t *testing.T) {
	replServers := []Server{rs(101, 1, testGen), rs(102, 1, testGen), rs(103, 2, testGen), rs(104, 1, 1)}

	tests := []struct {
		name         string
		header       protocol.UpdateHeader
		source       Server
		rs           []Server
		wantAckNow   bool
		wantExpected []int
		wantNeeded   int
	}{
		{"level one from DS", safeData(1), ds(1, 1, common.NormalStatus), replServers, true, nil, 0},
		{"level three from DS", safeData(3), ds(1, 1, common.NormalStatus), replServers, false, []int{101, 102}, 2},
		{"level lowered to topology", safeData(5), ds(1, 1, common.NormalStatus), replServers, false, []int{101, 102}, 2},
		{"no eligible RS", safeData(3), ds(1, 1, common.NormalStatus), []Server{rs(103, 2, testGen)}, true, nil, 0},
		{"level one from RS", safeData(1), rs(101, 1, testGen), replServers, false, nil, 0},
		{"level two from RS", safeData(2), rs(101, 1, testGen), replServers, true, nil, 0},
		{"other group", safeData(2), ds(1, 2, common.NormalStatus), replServers, false, nil, 0},
		{"bad generation", safeData(2), Server{ID: 1, GroupID: 1, GenerationID: 7, DataServer: true}, replServers, false, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := testDomain.Prepare(tt.header, tt.source, tt.rs, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAckNow, plan.AckNow)
			if tt.wantExpected == nil {
				assert.Nil(t, plan.Expected)
				return
			}
			require.NotNil(t, plan.Expected)
			assert.Equal(t, tt.wantExpected, plan.Expected.Servers())
			assert.Equal(t, tt.wantNeeded, plan.Expected.needed)
			assert.Equal(t, common.SafeDataMode, plan.Expected.Mode())
			assert.Equal(t, tt.source.ID, plan.Expected.Requester())
		})
	}
}

func TestPrepare_SafeRead(t *testing.T) {
	source := ds(1, 1, common.NormalStatus)
	dataServers := []Server{
		source,
		ds(2, 1, common.NormalStatus),
		ds(3, 1, common.DegradedStatus),
		ds(4, 1, common.FullUpdateStatus),
		ds(5, 2, common.NormalStatus),
	}
	replServers := []Server{rs(101, 1, testGen), rs(102, 1, 9)}

	plan, err := testDomain.Prepare(safeRead(), source, replServers, dataServers)
	require.NoError(t, err)
	assert.False(t, plan.AckNow)
	require.NotNil(t, plan.Expected)
	assert.Equal(t, []int{101, 2}, plan.Expected.Servers())

	// The degraded server is reported without being asked.
	plan.Expected.ProcessAck(101, protocol.NewAckMsg(testCSN))
	assert.True(t, plan.Expected.ProcessAck(2, protocol.NewAckMsg(testCSN)))
	final := plan.Expected.Complete(false)
	assert.True(t, final.HasWrongStatus)
	assert.Equal(t, []int{3}, final.FailedServers)

	// From a replication server only directory servers are asked.
	plan, err = testDomain.Prepare(safeRead(), rs(101, 1, testGen), replServers, dataServers)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, plan.Expected.Servers())

	// Nobody eligible: ack at once.
	plan, err = testDomain.Prepare(safeRead(), ds(5, 2, common.NormalStatus), replServers, dataServers)
	require.NoError(t, err)
	assert.True(t, plan.AckNow)
	assert.Nil(t, plan.Expected)
}

func TestPrepare_Errors(t *testing.T) {
	_, err := testDomain.Prepare(safeData(0), ds(1, 1, common.NormalStatus), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidSafeDataLevel)

	_, err = testDomain.Prepare(protocol.UpdateHeader{Assured: true, AssuredMode: 9}, ds(1, 1, common.NormalStatus), nil, nil)
	assert.ErrorIs(t, err, ErrUnknownMode)

	plan, err := testDomain.Prepare(protocol.UpdateHeader{CSN: testCSN}, ds(1, 1, common.NormalStatus), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Plan{}, plan)
}
