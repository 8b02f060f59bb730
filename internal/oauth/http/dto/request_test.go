package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLaunchRequest_Validate(t *testing.T) {
	assert.NoError(t, (&LaunchRequest{LaunchToken: "header.payload.signature"}).Validate())
	assert.Error(t, (&LaunchRequest{}).Validate())
	assert.Error(t, (&LaunchRequest{LaunchToken: "   "}).Validate())
	assert.Error(t, (&LaunchRequest{LaunchToken: strings.Repeat("a", 8193)}).Validate())
}

func TestAuthorizeRequest_Validate(t *testing.T) {
	assert.NoError(t, (&AuthorizeRequest{}).Validate())
	assert.NoError(t, (&AuthorizeRequest{Domain: "canvas.example.edu", Next: "/"}).Validate())
	assert.Error(t, (&AuthorizeRequest{Domain: "https://canvas.example.edu"}).Validate())
	assert.Error(t, (&AuthorizeRequest{Next: "javascript:alert(1)"}).Validate())
}

func TestTokenRequest_Validate(t *testing.T) {
	assert.NoError(t, (&TokenRequest{UserID: "42"}).Validate())
	assert.NoError(t, (&TokenRequest{UserID: "42", Domain: "canvas.example.edu"}).Validate())
	assert.Error(t, (&TokenRequest{}).Validate())
	assert.Error(t, (&TokenRequest{UserID: "42", Domain: "Canvas.Example.edu"}).Validate())
}
