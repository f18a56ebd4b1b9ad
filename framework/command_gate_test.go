package framework

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandGateBlocksDenylistedCommands(t *testing.T) {
	gate := NewCommandGate()
	for _, cmd := range []string{
		"sudo rm -rf /",
		"rm -rf build",
		"del C:\\temp\\x",
		"format C:",
		"chmod +x script.sh",
		"echo hi && sudo ls",
	} {
		err := gate.Validate(cmd)
		require.Error(t, err, cmd)
		var secErr *SecurityError
		require.True(t, errors.As(err, &secErr), cmd)
		require.Equal(t, cmd, secErr.Subject)
	}
}

func TestCommandGateAllowsOrdinaryCommands(t *testing.T) {
	gate := NewCommandGate()
	for _, cmd := range []string{
		"echo hello",
		`python "/home/me/Desktop/code_1.py"`,
		`bash "/home/me/Desktop/code_1.sh"`,
		"ls -la",
		"rmdir-not-a-match",
	} {
		require.NoError(t, gate.Validate(cmd), cmd)
	}
}

func TestCommandGateIsCaseSensitive(t *testing.T) {
	gate := NewCommandGate()
	require.NoError(t, gate.Validate("SUDO ls"))
	require.NoError(t, gate.Validate("RM -rf /tmp/x"))
}

func TestNilCommandGateUsesDefaults(t *testing.T) {
	var gate *CommandGate
	require.Error(t, gate.Validate("sudo true"))
	require.ElementsMatch(t, []string{"rm ", "del ", "format ", "chmod", "sudo"}, gate.BlockedPatterns())
}
