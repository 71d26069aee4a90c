package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandTakesNoArguments(t *testing.T) {
	assert.Error(t, rootCmd.Args(rootCmd, []string{"prod"}))
	assert.NoError(t, rootCmd.Args(rootCmd, nil))
}

func TestRootCommandHasNoFlags(t *testing.T) {
	assert.False(t, rootCmd.HasAvailableLocalFlags())
	assert.False(t, rootCmd.HasAvailablePersistentFlags())
}
