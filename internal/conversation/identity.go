package conversation

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const maxSlugLen = 50

// DeriveID computes the stable conversation identifier for a project path
// and git branch. The id is a pure function of its inputs: the same pair
// always yields the same id, which is what lets a conversation resume
// across process restarts without any external handle. A readable
// project-branch prefix is followed by a hash of the full inputs so that
// distinct pairs with colliding slugs still get distinct ids.
func DeriveID(projectPath, gitBranch string) string {
	sum := sha256.Sum256([]byte(projectPath + "\x00" + gitBranch))
	return Slugify(filepath.Base(projectPath)) + "-" + Slugify(gitBranch) + "-" + hex.EncodeToString(sum[:])[:8]
}

// PlanFilePath returns the plan file location for a branch: one stable,
// human-readable path per branch under the project's .vibe directory.
func PlanFilePath(projectPath, gitBranch string) string {
	return filepath.Join(projectPath, ".vibe", "development-plan-"+Slugify(gitBranch)+".md")
}

// Slugify converts a string into a filesystem-safe slug.
// Example: "feature/user-auth" -> "feature-user-auth"
//
// Rules:
//   - Lowercase
//   - Spaces, slashes, dots and underscores become hyphens
//   - Other non-alphanumeric characters are removed
//   - Consecutive hyphens are collapsed
//   - Leading/trailing hyphens are trimmed
//   - Truncated to 50 characters (at a word boundary if possible)
//   - Empty input returns "default"
func Slugify(s string) string {
	if strings.TrimSpace(s) == "" {
		return "default"
	}

	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	prevHyphen := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevHyphen = false
		case r == ' ' || r == '_' || r == '-' || r == '/' || r == '.':
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "default"
	}
	if len(slug) <= maxSlugLen {
		return slug
	}

	truncated := slug[:maxSlugLen]
	if lastHyphen := strings.LastIndex(truncated, "-"); lastHyphen > maxSlugLen/2 {
		truncated = truncated[:lastHyphen]
	}
	return strings.TrimRight(truncated, "-")
}
