package middleware

import (
	"context"

	"permit-processing-backend/token"

	"github.com/redis/go-redis/v9"
)

// AppContext bundles the dependencies shared by auth middleware
type AppContext struct {
	PasetoMaker token.Maker
	Ctx         context.Context
	RedisClient *redis.Client
}
