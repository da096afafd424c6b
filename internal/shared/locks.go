package shared

import "fmt"

// MediaCleanupLockKey builds redis keys guarding media cleanup runs so two
// workers never sweep the same owner directory at once.
func MediaCleanupLockKey(namespace, ownerUUID string) string {
	return fmt.Sprintf("media:cleanup:%s:%s:lock", namespace, ownerUUID)
}
