package user

import "github.com/ticketbox/ticketbox-api/internal/pkg/apperr"

var ErrUserNotFound = apperr.NotFound("User not found")
