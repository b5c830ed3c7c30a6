package handler

import (
	"context"

	"teamchat/internal/app/chat"
	"teamchat/internal/configs"
)

// AppDeps carries the services the HTTP layer dispatches to.
type AppDeps struct {
	Hub    *chat.Hub
	Config *configs.AppConfig

	// Ping checks the backing store for /health. Nil skips the check.
	Ping func(ctx context.Context) error
}
