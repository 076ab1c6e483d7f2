package engine

// =============================================================================
// KEY COMPOSITION - "<app-prefix>:<identity>:<logical-key>"
// =============================================================================

// Prefix is the fixed application prefix on every namespaced key.
const Prefix = "finesse"

// Logical key names. All are stored under the fully qualified form
// "finesse:<identity>:<name>".
const (
	KeyUserXP            = "userXP"
	KeyCurrentStreak     = "currentStreak"
	KeyLastActiveDate    = "lastActiveDate"
	KeyCompletedLessons  = "completedLessons"
	KeyUserPoints        = "userPoints"
	KeyUserProgress      = "userProgress"
	KeyDailyChallenge    = "dailyChallengeState"
	KeyLastVisitedLesson = "lastVisitedLesson"
)

// LogicalKeys lists every logical key the engine owns. Drives the
// legacy flat-key migration and namespace resets.
var LogicalKeys = []string{
	KeyUserXP,
	KeyCurrentStreak,
	KeyLastActiveDate,
	KeyCompletedLessons,
	KeyUserPoints,
	KeyUserProgress,
	KeyDailyChallenge,
	KeyLastVisitedLesson,
}

// QualifiedKey composes the full storage key for (identity, logical).
// Pure function: two different identities never share a key even when
// logical keys collide.
func QualifiedKey(ident Identity, logical string) string {
	return Prefix + ":" + string(ident) + ":" + logical
}

// NamespacePrefix returns the key prefix owned by ident, including the
// trailing separator.
func NamespacePrefix(ident Identity) string {
	return Prefix + ":" + string(ident) + ":"
}
