package storage

import "context"

// Keys owned by the session store. Nothing else reads or writes them.
const (
	KeyToken    = "zenty_token"
	KeyRole     = "zenty_user_type"
	KeyCustomer = "zenty_user"
	KeyMerchant = "zenty_merchant"
)

// SessionKeys lists every key cleared by a logout.
var SessionKeys = []string{KeyToken, KeyRole, KeyCustomer, KeyMerchant}

// Store is the durable key-value storage behind a device's session.
// A namespace isolates one device from another.
type Store interface {
	// Get returns the value and whether it exists.
	Get(ctx context.Context, namespace, key string) (string, bool, error)

	// Set creates or overwrites a value.
	Set(ctx context.Context, namespace, key, value string) error

	// Delete removes keys; missing keys are not an error.
	Delete(ctx context.Context, namespace string, keys ...string) error
}
