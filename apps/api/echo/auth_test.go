package echoapi

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

func setupAuth() {
	core.Conf = &core.Config{
		AppName:   "Shule",
		SecretKey: "secret",
		Server: core.ServerConfig{
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
	appJWTConfig = newJWTConfig(core.Conf)
}

func TestGetUserClaims(t *testing.T) {
	setupAuth()

	usr := user.User{
		ID:       "2c31677a-0a3b-47c9-b56c-c4fea3e2d186",
		Username: "awe",
		Email:    "awe@test.cd",
		Roles:    user.TeacherRoles,
	}

	claims := GetUserClaims(usr)
	if claims.Subject != usr.ID {
		t.Errorf("GetUserClaims() Subject = %q, want %q", claims.Subject, usr.ID)
	}
	if claims.Audience != "Shule" {
		t.Errorf("GetUserClaims() Audience = %q, want Shule", claims.Audience)
	}
	if !claims.IsTeacher || claims.IsStudent || claims.IsParent || claims.IsAdmin {
		t.Errorf("GetUserClaims() portal flags = %+v, want teacher only", claims)
	}
	if claims.OrigIssuedAt != claims.IssuedAt {
		t.Errorf("GetUserClaims() OrigIssuedAt = %d, want %d", claims.OrigIssuedAt, claims.IssuedAt)
	}

	// refreshed claims keep the original issue time
	oriat := time.Now().Add(-time.Hour).Unix()
	refreshed := GetUserClaims(usr, oriat)
	if refreshed.OrigIssuedAt != oriat {
		t.Errorf("GetUserClaims() OrigIssuedAt = %d, want %d", refreshed.OrigIssuedAt, oriat)
	}
}

func TestGenerateToken_roundTrip(t *testing.T) {
	setupAuth()

	usr := user.User{
		ID:       "2c31677a-0a3b-47c9-b56c-c4fea3e2d186",
		Username: "awe",
		Email:    "awe@test.cd",
		Roles:    user.AdminRoles,
	}

	ss, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	parsed := new(Claims)
	token, err := jwt.ParseWithClaims(ss, parsed, func(token *jwt.Token) (interface{}, error) {
		return appJWTConfig.SigningKey, nil
	})
	if err != nil {
		t.Fatalf("ParseWithClaims() failed: %v", err)
	}
	if !token.Valid {
		t.Fatal("token is not valid")
	}
	if parsed.Subject != usr.ID {
		t.Errorf("Subject = %q, want %q", parsed.Subject, usr.ID)
	}
	if !parsed.IsAdmin {
		t.Error("IsAdmin = false, want true")
	}

	// a token signed with another key is rejected
	otherKey := []byte("other")
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	forged, err := jwt.NewWithClaims(method, GetUserClaims(usr)).SignedString(otherKey)
	if err != nil {
		t.Fatalf("SignedString() failed: %v", err)
	}
	if _, err = jwt.ParseWithClaims(forged, new(Claims), func(token *jwt.Token) (interface{}, error) {
		return appJWTConfig.SigningKey, nil
	}); err == nil {
		t.Error("ParseWithClaims() accepted a forged token")
	}
}
