package app

import (
	"strings"
	"time"

	"github.com/medscribe/medscribe-backend/internal/dify"
	"github.com/medscribe/medscribe-backend/internal/logger"
	"github.com/medscribe/medscribe-backend/internal/utils"
)

type Config struct {
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	Dify dify.Config

	QuotaFreeAllowance int
	TaskTTL            time.Duration

	RedisAddr    string
	RedisChannel string

	CORSAllowedOrigins []string
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTLSeconds := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	quotaFreeAllowance := utils.GetEnvAsInt("QUOTA_FREE_ALLOWANCE", 5, log)
	taskTTLSeconds := utils.GetEnvAsInt("TASK_TTL", 3600, log)

	var origins []string
	if raw := utils.GetEnv("CORS_ALLOWED_ORIGINS", "", log); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return Config{
		JWTSecretKey:       jwtSecretKey,
		AccessTokenTTL:     time.Duration(accessTokenTTLSeconds) * time.Second,
		RefreshTokenTTL:    time.Duration(refreshTokenTTLSeconds) * time.Second,
		Dify:               dify.LoadConfig(log),
		QuotaFreeAllowance: quotaFreeAllowance,
		TaskTTL:            time.Duration(taskTTLSeconds) * time.Second,
		RedisAddr:          utils.GetEnv("REDIS_ADDR", "", log),
		RedisChannel:       utils.GetEnv("REDIS_CHANNEL", "task-events", log),
		CORSAllowedOrigins: origins,
	}
}
