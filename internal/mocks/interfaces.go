package mocks

import "github.com/pageza/recipehub/internal/service"

var (
	_ service.IAuthService    = (*MockAuthService)(nil)
	_ service.IRecipeService  = (*MockRecipeService)(nil)
	_ service.IMessageService = (*MockMessageService)(nil)
)
