package redis

import "fmt"

const (
	// KeyPrefixService is the prefix for service record keys
	KeyPrefixService = "antenna:service:"
	// KeyAllServices is the key for the set of all service IDs
	KeyAllServices = "antenna:services:all"
)

// ServiceKey returns the Redis key for a service record by ID
func ServiceKey(id string) string {
	return KeyPrefixService + id
}

// AllServicesKey returns the key for the set of all service IDs
func AllServicesKey() string {
	return KeyAllServices
}

// ExtractServiceID extracts the service ID from a Redis key
func ExtractServiceID(key string) (string, error) {
	if len(key) <= len(KeyPrefixService) {
		return "", fmt.Errorf("invalid service key: %s", key)
	}
	return key[len(KeyPrefixService):], nil
}
