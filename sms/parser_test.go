package sms_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harshach55/AssistQR/sms"
)

func TestParseCommand_Coordinates(t *testing.T) {
	cmd, err := sms.ParseCommand("REPORT tok123 12.97 77.59 NOTE car smoking")
	assert.NoError(t, err)
	assert.Equal(t, "tok123", cmd.Token)
	if assert.NotNil(t, cmd.Latitude) {
		assert.Equal(t, 12.97, *cmd.Latitude)
	}
	if assert.NotNil(t, cmd.Longitude) {
		assert.Equal(t, 77.59, *cmd.Longitude)
	}
	assert.Equal(t, "car smoking", cmd.HelperNote)
	assert.Empty(t, cmd.ManualLocation)
}

func TestParseCommand_CoordinatesWithoutNote(t *testing.T) {
	cmd, err := sms.ParseCommand("REPORT tok123 12.97 77.59")
	assert.NoError(t, err)
	assert.NotNil(t, cmd.Latitude)
	assert.NotNil(t, cmd.Longitude)
	assert.Empty(t, cmd.HelperNote)
}

func TestParseCommand_Location(t *testing.T) {
	cmd, err := sms.ParseCommand("REPORT tok123 LOCATION near gate 2 NOTE leaking fluid")
	assert.NoError(t, err)
	assert.Equal(t, "near gate 2", cmd.ManualLocation)
	assert.Equal(t, "leaking fluid", cmd.HelperNote)
	assert.Nil(t, cmd.Latitude)
	assert.Nil(t, cmd.Longitude)
}

func TestParseCommand_LocationOnly(t *testing.T) {
	cmd, err := sms.ParseCommand("REPORT tok123 LOCATION behind the mall")
	assert.NoError(t, err)
	assert.Equal(t, "behind the mall", cmd.ManualLocation)
	assert.Empty(t, cmd.HelperNote)
}

func TestParseCommand_NoteOnly(t *testing.T) {
	cmd, err := sms.ParseCommand("REPORT tok123 NOTE front bumper damage")
	assert.NoError(t, err)
	assert.Empty(t, cmd.ManualLocation)
	assert.Equal(t, "front bumper damage", cmd.HelperNote)
}

func TestParseCommand_OutOfRangeCoordinatesFallThrough(t *testing.T) {
	// 91 is not a valid latitude so tokens are not coordinates; with no
	// LOCATION or NOTE keyword either, the command carries only the token.
	cmd, err := sms.ParseCommand("REPORT tok123 91.0 10.0")
	assert.NoError(t, err)
	assert.Nil(t, cmd.Latitude)
	assert.Nil(t, cmd.Longitude)
	assert.Empty(t, cmd.ManualLocation)
	assert.Empty(t, cmd.HelperNote)
}

func TestParseCommand_InvalidFormat(t *testing.T) {
	_, err := sms.ParseCommand("HELLO")
	assert.ErrorIs(t, err, sms.ErrInvalidFormat)

	// keyword is case-sensitive
	_, err = sms.ParseCommand("report tok123")
	assert.ErrorIs(t, err, sms.ErrInvalidFormat)

	_, err = sms.ParseCommand("")
	assert.ErrorIs(t, err, sms.ErrInvalidFormat)
}

func TestParseCommand_MissingToken(t *testing.T) {
	_, err := sms.ParseCommand("REPORT")
	assert.ErrorIs(t, err, sms.ErrMissingToken)
}
