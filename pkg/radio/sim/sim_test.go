package sim

import (
	"bytes"
	"errors"
	"testing"

	"github.com/norasector/nrfjam/pkg/radio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelLogLimit(t *testing.T) {
	d := New(WithChannelLog(3))
	for ch := uint8(0); ch < 10; ch++ {
		require.NoError(t, d.SetChannel(ch))
	}

	assert.Equal(t, []uint8{0, 1, 2}, d.ChannelLog())
	assert.Equal(t, uint64(10), d.ChannelWrites())
	assert.Equal(t, uint8(9), d.State().Channel)
}

func TestInvalidChannel(t *testing.T) {
	d := New()
	assert.ErrorIs(t, d.SetChannel(126), radio.ErrInvalidChannel)
	assert.ErrorIs(t, d.StartCarrier(200, 7), radio.ErrInvalidChannel)
	assert.Zero(t, d.ChannelWrites())
}

func TestRecorder(t *testing.T) {
	var buf bytes.Buffer
	d := New(WithRecorder(&buf))
	for _, ch := range []uint8{2, 26, 80} {
		require.NoError(t, d.SetChannel(ch))
	}
	assert.Equal(t, []byte{2, 26, 80}, buf.Bytes())
}

func TestSendRequiresTxMode(t *testing.T) {
	d := New()
	assert.Error(t, d.Send([]byte{radio.CmdTxPayloadNoAck, 0xFF, 0xFF}, 0))

	require.NoError(t, d.SetTxMode())
	require.NoError(t, d.Send([]byte{radio.CmdTxPayloadNoAck, 0xFF, 0xFF}, 0))
	assert.Equal(t, uint64(1), d.FramesSent())
	assert.Equal(t, [][]byte{{radio.CmdTxPayloadNoAck, 0xFF, 0xFF}}, d.TxLog())
}

func TestTxLogKeepsNewest(t *testing.T) {
	d := New()
	require.NoError(t, d.SetTxMode())
	for i := 0; i < ringCapacity+5; i++ {
		require.NoError(t, d.Send([]byte{byte(i)}, 0))
	}

	log := d.TxLog()
	require.Len(t, log, ringCapacity)
	assert.Equal(t, []byte{5}, log[0])
	assert.Equal(t, []byte{ringCapacity + 4}, log[ringCapacity-1])
}

func TestCarrierAndPower(t *testing.T) {
	d := New()
	require.NoError(t, d.WritePower(0xF0))
	require.NoError(t, d.StartCarrier(0, 7))

	st := d.State()
	assert.True(t, st.Carrier)
	assert.Equal(t, uint8(0xF7), st.Power)

	require.NoError(t, d.StopCarrier())
	assert.False(t, d.State().Carrier)
}

func TestPresenceAndFailures(t *testing.T) {
	d := New(WithPresent(false))
	assert.False(t, d.Present())
	assert.ErrorIs(t, d.Configure(radio.Addressing{}), radio.ErrNotPresent)

	d.SetPresent(true)
	require.NoError(t, d.Configure(radio.Addressing{AddressWidth: 2, RxAddr: []byte{0xFF, 0xFF}, Channel: 1}))
	assert.Equal(t, []byte{0xFF, 0xFF}, d.State().Addressing.RxAddr)

	boom := errors.New("spi fault")
	d.FailWrites(boom)
	assert.ErrorIs(t, d.SetChannel(3), boom)
	d.FailWrites(nil)
	assert.NoError(t, d.SetChannel(3))
}
