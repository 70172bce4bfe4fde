package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	tokenStoreVar      = "TOKEN_STORE"
	credentialsFileVar = "CREDENTIALS_FILE"
	redisAddrVar       = "REDIS_ADDR"
	redisPasswordVar   = "REDIS_PASSWORD"
	redisDBVar         = "REDIS_DB"
	redisKeyVar        = "REDIS_KEY"
)

// Persistent tier backends
const (
	TokenStoreFile  = "file"
	TokenStoreRedis = "redis"
)

type StorageConfig interface {
	GetTokenStore() string
	GetCredentialsFile() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKey() string
}

type Storage struct {
	v *viper.Viper
}

var _ StorageConfig = Storage{}

// GetTokenStore names the persistent tier backend; anything unknown falls back to file.
func (s Storage) GetTokenStore() string {
	if getString(s.v, tokenStoreVar) == TokenStoreRedis {
		return TokenStoreRedis
	}
	return TokenStoreFile
}

func (s Storage) GetCredentialsFile() string {
	if f := getString(s.v, credentialsFileVar); f != "" {
		return f
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "beetrack", "credentials.yaml")
}

func (s Storage) GetRedisAddr() string {
	return getString(s.v, redisAddrVar)
}

func (s Storage) GetRedisPassword() string {
	return s.v.GetString(redisPasswordVar)
}

func (s Storage) GetRedisDB() int {
	return s.v.GetInt(redisDBVar)
}

func (s Storage) GetRedisKey() string {
	return getString(s.v, redisKeyVar)
}
