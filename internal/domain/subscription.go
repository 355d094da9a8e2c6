package domain

import (
	"fmt"
	"strings"
)

// SubscriptionPath returns the fully qualified Pub/Sub subscription name.
func SubscriptionPath(projectID, subscriptionID string) string {
	return fmt.Sprintf("projects/%s/subscriptions/%s", projectID, subscriptionID)
}

// ParseSubscriptionPath splits a fully qualified subscription name into its
// project and subscription IDs. A bare ID is returned with an empty project.
func ParseSubscriptionPath(path string) (projectID, subscriptionID string, err error) {
	if !strings.Contains(path, "/") {
		if path == "" {
			return "", "", fmt.Errorf("%w: empty subscription", ErrInvalidConfig)
		}
		return "", path, nil
	}
	parts := strings.Split(path, "/")
	if len(parts) != 4 || parts[0] != "projects" || parts[2] != "subscriptions" || parts[1] == "" || parts[3] == "" {
		return "", "", fmt.Errorf("%w: malformed subscription path %q", ErrInvalidConfig, path)
	}
	return parts[1], parts[3], nil
}
