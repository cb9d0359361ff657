package env

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultHubName(t *testing.T) {
	name := DefaultHubName()
	require.True(t, strings.HasPrefix(name, "hub-"))
	require.Equal(t, name, DefaultHubName())
}

func TestGetenv(t *testing.T) {
	os.Setenv("TRAINHUB_TEST_VALUE", "v")
	defer os.Unsetenv("TRAINHUB_TEST_VALUE")
	require.Equal(t, "v", Getenv("TRAINHUB_TEST_VALUE", "d"))
	require.Equal(t, "d", Getenv("TRAINHUB_TEST_UNSET", "d"))
}
