package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/pkg/config"
)

func testTokenManager() *TokenManager {
	return newTokenManager(&config.TokenConf{
		AccessTokenSecret:      "access-secret",
		RefreshTokenSecret:     "refresh-secret",
		AccessTokenExpiryHour:  1,
		RefreshTokenExpiryHour: 168,
	})
}

func TestTokenRoundTrip(t *testing.T) {
	tm := testTokenManager()
	msg := JWTMessage{UserID: 42, Username: "alice", RolePlatform: model.RoleAdmin}

	accessToken, refreshToken, refreshID, err := tm.CreateTokens(&msg)
	require.NoError(t, err)
	require.NotEmpty(t, refreshID)

	got, err := tm.CheckToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, msg, got)

	got, jti, err := tm.CheckRefreshToken(refreshToken)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
	assert.Equal(t, refreshID, jti)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	tm := testTokenManager()
	msg := JWTMessage{UserID: 7, Username: "bob", RolePlatform: model.RoleUser}

	accessToken, refreshToken, _, err := tm.CreateTokens(&msg)
	require.NoError(t, err)

	_, err = tm.CheckToken(refreshToken)
	assert.Error(t, err)

	_, _, err = tm.CheckRefreshToken(accessToken)
	assert.Error(t, err)
}

func TestCheckTokenRejectsGarbage(t *testing.T) {
	tm := testTokenManager()
	_, err := tm.CheckToken("not-a-token")
	assert.Error(t, err)
}
