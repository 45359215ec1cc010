package auth

import (
	"context"
)

// --- Context Helper Functions ---

// GetOperatorFromContext retrieves the operator name from the request context.
// Returns the name and true if found, otherwise "" and false.
func GetOperatorFromContext(ctx context.Context) (string, bool) {
	operator, ok := ctx.Value(OperatorKey).(string)
	return operator, ok
}
