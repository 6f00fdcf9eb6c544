package fix

import (
	"context"
	"errors"
	"fmt"

	"github.com/AbdelazizMoustafa10m/Raven/internal/git"
)

// maxBranchSuffix bounds the collision-retry loop: fix/<id>, fix/<id>-2, ...,
// fix/<id>-100.
const maxBranchSuffix = 100

// ErrBranchNameExhausted is returned when every suffix up to maxBranchSuffix
// is already taken.
var ErrBranchNameExhausted = errors.New("fix: branch name exhausted")

// BranchAllocator resolves a collision-free branch name for an issue fix,
// generalizing pipeline.BranchManager's template resolution (there driven by
// phase id; here driven by issue id with a bounded numeric-suffix retry
// instead of a single deterministic slug).
type BranchAllocator struct {
	gitClient git.Client
}

// NewBranchAllocator creates a BranchAllocator bound to the given git client.
func NewBranchAllocator(gitClient git.Client) *BranchAllocator {
	return &BranchAllocator{gitClient: gitClient}
}

// Allocate returns the first available branch name for issueID: "fix/<id>",
// then "fix/<id>-2" through "fix/<id>-100". Returns ErrBranchNameExhausted if
// all of them already exist.
func (b *BranchAllocator) Allocate(ctx context.Context, issueID string) (string, error) {
	base := fmt.Sprintf("fix/%s", issueID)

	exists, err := b.gitClient.BranchExists(ctx, base)
	if err != nil {
		return "", fmt.Errorf("fix: allocating branch for %q: %w", issueID, err)
	}
	if !exists {
		return base, nil
	}

	for suffix := 2; suffix <= maxBranchSuffix; suffix++ {
		name := fmt.Sprintf("%s-%d", base, suffix)
		exists, err := b.gitClient.BranchExists(ctx, name)
		if err != nil {
			return "", fmt.Errorf("fix: allocating branch for %q: %w", issueID, err)
		}
		if !exists {
			return name, nil
		}
	}

	return "", fmt.Errorf("fix: allocating branch for %q: %w", issueID, ErrBranchNameExhausted)
}
