package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inkwave/member-back/internal/config"
	iwm "github.com/inkwave/member-back/internal/models"

	"github.com/dgrijalva/jwt-go"
)

// TokenClaims 请求方身份：用户ID和角色
type TokenClaims struct {
	UserID uint
	Role   string
}

type JWTService interface {
	GenerateToken(user iwm.User) (string, error)
	ValidateToken(tokenString string) (*TokenClaims, error)
}
type jWTServiceImpl struct {
}

func NewJWTService() JWTService {
	return &jWTServiceImpl{}
}

// generateToken generates JWT token
func (j *jWTServiceImpl) GenerateToken(user iwm.User) (string, error) {
	// Set claims
	claims := jwt.MapClaims{
		"iss":    config.GetConfig().JwtIssuer,
		"userid": user.ID,
		"role":   user.Role,
		"exp":    time.Now().Add(time.Hour * 24).Unix(), // Token valid for 24 hours
		"iat":    time.Now().Unix(),
	}

	// Create token object using HS256 signing
	token := jwt.New(jwt.SigningMethodHS256)
	token.Claims = claims

	// Sign and get token string
	return token.SignedString(config.GetConfig().JwtKey)
}

func (j *jWTServiceImpl) ValidateToken(tokenString string) (*TokenClaims, error) {
	// Parse token string, ignore "Bearer " prefix
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	// Parse JWT
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return config.GetConfig().JwtKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("token parse failed: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	// Verify timeliness and issuer
	if !claims.VerifyIssuer(config.GetConfig().JwtIssuer, true) {
		return nil, fmt.Errorf("issuer validation failed")
	}
	if !claims.VerifyExpiresAt(time.Now().Unix(), true) {
		return nil, fmt.Errorf("token expired")
	}

	userID, ok := claims["userid"].(float64) // JSON numbers are parsed as float64 by default
	if !ok {
		return nil, errors.New("userid claim missing or invalid type")
	}
	role, _ := claims["role"].(string)
	if role == "" {
		role = iwm.RoleUser
	}

	return &TokenClaims{UserID: uint(userID), Role: role}, nil
}
