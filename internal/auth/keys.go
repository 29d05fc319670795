package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"
)

// GenerateKeyPEM 生成一对 RSA 密钥（PEM 编码），用于本地开发与测试。
func GenerateKeyPEM(bits int) (privatePEM, publicPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate rsa key: %w", err)
	}
	privatePEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err)
	}
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privatePEM, publicPEM, nil
}

// NewEphemeralService 使用临时生成的密钥构造 AuthService。
func NewEphemeralService(accessTTL, refreshTTL time.Duration) (*AuthService, error) {
	privatePEM, publicPEM, err := GenerateKeyPEM(2048)
	if err != nil {
		return nil, err
	}
	return NewAuthService(privatePEM, publicPEM, accessTTL, refreshTTL)
}
