package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReviewCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range reviewCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["submit"])
	assert.True(t, names["clean"])
}

func TestReviewSubmitCmd_Flags(t *testing.T) {
	assert.NotNil(t, reviewSubmitCmd.Flags().Lookup("draft"))
	assert.NotNil(t, reviewSubmitCmd.Flags().Lookup("base"))
	assert.NotNil(t, reviewSubmitCmd.Flags().Lookup("all"))
}

func TestReviewCleanCmd_Flags(t *testing.T) {
	assert.NotNil(t, reviewCleanCmd.Flags().Lookup("all"))
}

func TestReviewSubmitCmd_RequiresIDsOrAll(t *testing.T) {
	reviewAll = false
	err := reviewSubmitCmd.RunE(reviewSubmitCmd, nil)
	assert.Error(t, err)
}

func TestReviewCleanCmd_RequiresIDsOrAll(t *testing.T) {
	reviewAll = false
	err := reviewCleanCmd.RunE(reviewCleanCmd, nil)
	assert.Error(t, err)
}
