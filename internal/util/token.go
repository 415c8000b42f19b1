package util

import (
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/pkg/config"
	"github.com/raids-lab/taskboard/pkg/logutils"
)

type (
	JWTClaims struct {
		UserID       uint       `json:"ui"`
		Username     string     `json:"un"`
		RolePlatform model.Role `json:"rp"`
		jwt.RegisteredClaims
	}
	JWTMessage struct {
		UserID       uint       `json:"userID"`       // User ID
		Username     string     `json:"username"`     // Display name
		RolePlatform model.Role `json:"rolePlatform"` // Role in platform (e.g. user, admin)
	}
)

type TokenManager struct {
	accessSecret    string
	refreshSecret   string
	accessTokenTTL  int
	refreshTokenTTL int
}

var (
	once     sync.Once
	tokenMgr *TokenManager
)

func GetTokenMgr() *TokenManager {
	once.Do(func() {
		tokenConfig := config.GetConfig().Auth
		tokenMgr = newTokenManager(&tokenConfig)
	})
	return tokenMgr
}

func newTokenManager(conf *config.TokenConf) *TokenManager {
	return &TokenManager{
		accessSecret:    conf.AccessTokenSecret,
		refreshSecret:   conf.RefreshTokenSecret,
		accessTokenTTL:  conf.AccessTokenExpiryHour,
		refreshTokenTTL: conf.RefreshTokenExpiryHour,
	}
}

func (tm *TokenManager) createToken(msg *JWTMessage, ttl int, secret, jti string) (string, error) {
	expiresAt := time.Now().Add(time.Hour * time.Duration(ttl))

	claims := &JWTClaims{
		UserID:       msg.UserID,
		Username:     msg.Username,
		RolePlatform: msg.RolePlatform,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// CreateTokens creates a new access token and a new refresh token.
// The refresh token carries a unique ID (jti) so the session store can
// revoke it server-side; the returned refreshID is that jti.
func (tm *TokenManager) CreateTokens(msg *JWTMessage) (
	accessToken, refreshToken, refreshID string, err error) {
	accessToken, err = tm.createToken(msg, tm.accessTokenTTL, tm.accessSecret, "")
	if err != nil {
		logutils.Log.Error(err)
		return "", "", "", err
	}
	refreshID = uuid.NewString()
	refreshToken, err = tm.createToken(msg, tm.refreshTokenTTL, tm.refreshSecret, refreshID)
	if err != nil {
		logutils.Log.Error(err)
		return "", "", "", err
	}
	return accessToken, refreshToken, refreshID, nil
}

// RefreshTokenTTL is the lifetime the session store should apply to a
// refresh-token record.
func (tm *TokenManager) RefreshTokenTTL() time.Duration {
	return time.Hour * time.Duration(tm.refreshTokenTTL)
}

func (tm *TokenManager) CheckToken(requestToken string) (JWTMessage, error) {
	msg, _, err := tm.parse(requestToken, tm.accessSecret)
	return msg, err
}

// CheckRefreshToken validates a refresh token and returns its jti so the
// caller can look it up in the session store.
func (tm *TokenManager) CheckRefreshToken(requestToken string) (JWTMessage, string, error) {
	return tm.parse(requestToken, tm.refreshSecret)
}

func (tm *TokenManager) parse(requestToken, secret string) (JWTMessage, string, error) {
	claims := JWTClaims{}
	_, err := jwt.ParseWithClaims(requestToken, &claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	return JWTMessage{
		UserID:       claims.UserID,
		Username:     claims.Username,
		RolePlatform: claims.RolePlatform,
	}, claims.ID, err
}
