package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minaorangina/horserace/game"
)

func TestCmdNames(t *testing.T) {
	require.Equal(t, len(CmdNames), len(NameToCmd))
	for cmd, name := range CmdNames {
		assert.Equal(t, cmd, NameToCmd[name])
	}
}

func TestInboundMessage(t *testing.T) {
	var msg InboundMessage
	require.NoError(t, json.Unmarshal([]byte(`{"command":"Draw"}`), &msg))
	assert.Equal(t, Draw, msg.Command)

	err := json.Unmarshal([]byte(`{"command":"Gallop"}`), &msg)
	assert.Error(t, err)

	require.NoError(t, json.Unmarshal([]byte(`{"command":"Start","bets":[{"name":"Ada","suit":"hearts","drinks":2}]}`), &msg))
	assert.Equal(t, Start, msg.Command)
	require.Len(t, msg.Bets, 1)
	assert.Equal(t, "Ada", msg.Bets[0].Name)
}

func TestCmdForEvent(t *testing.T) {
	assert.Equal(t, Advance, CmdForEvent(game.Advance))
	assert.Equal(t, Reveal, CmdForEvent(game.RevealStage))
	assert.Equal(t, Retreat, CmdForEvent(game.Retreat))
	assert.Equal(t, Winner, CmdForEvent(game.WinnerDetermined))
}

func TestOutboundMessage(t *testing.T) {
	data, err := json.Marshal(OutboundMessage{RaceID: "r1", Command: Settled})
	require.NoError(t, err)
	assert.JSONEq(t, `{"raceID":"r1","command":"Settled"}`, string(data))
}
