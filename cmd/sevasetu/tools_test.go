package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestToolsCommandListsSchemeTools(t *testing.T) {
	cmd := newToolsCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	var listing []toolListing
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &listing))
	require.Len(t, listing, 2)
	assert.Equal(t, "check_eligibility", listing[0].Name)
	assert.Equal(t, "get_scheme_documents", listing[1].Name)

	props, ok := listing[0].Parameters["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "user_details")
	assert.Equal(t, []interface{}{"user_details"}, listing[0].Parameters["required"])
}
