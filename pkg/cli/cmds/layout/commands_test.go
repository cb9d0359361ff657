package layout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brickrail/trainhub/pkg/layout"
)

func TestExecuteArgs(t *testing.T) {
	args, err := ExecuteArgs("1", "right")
	require.NoError(t, err)
	require.Equal(t, []byte{1, layout.CommandSwitch, layout.SwitchRight}, args)

	args, err = ExecuteArgs("0", "down")
	require.NoError(t, err)
	require.Equal(t, []byte{0, layout.CommandSetPos, layout.CrossingDown}, args)

	_, err = ExecuteArgs("6", "left")
	require.Error(t, err)
	_, err = ExecuteArgs("0", "middle")
	require.Error(t, err)
}
