package intake

import "github.com/google/uuid"

// UniqueName prefixes name with a random 8-character identifier so that
// concurrently staged or routed copies of same-named files never collide.
func UniqueName(name string) string {
	return uuid.NewString()[:8] + "_" + name
}
