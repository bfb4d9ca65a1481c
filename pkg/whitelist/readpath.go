package whitelist

import (
	"context"

	apperrors "github.com/chainsafe/whitelist-merkle-service/pkg/app/errors"
	"github.com/chainsafe/whitelist-merkle-service/pkg/kvstore"
	"github.com/chainsafe/whitelist-merkle-service/pkg/merkle"
)

// MaxPageSize and MinPageSize bound pageSize per spec §6.
const (
	MinPageSize = 1
	MaxPageSize = 1000
)

// TreeSummary is a single row of the anonymous-safe tree catalog (spec
// §4.5's getMerkleTrees), projecting only the whitelist name.
type TreeSummary struct {
	WhitelistName string
}

// RootsPage is a page of full root records plus continuation token.
type RootsPage struct {
	Roots []kvstore.RootRecord
	Token string
}

// TreesPage is a page of projected tree summaries plus continuation token.
type TreesPage struct {
	Trees []TreeSummary
	Token string
}

// ReadPath implements spec §4.5, component E: lookups over the roots and
// proofs tables that never mutate state. Every caller-supplied address is
// checksum-canonicalized before use, per §9's resolution of the
// case-normalization open question.
type ReadPath struct {
	roots  kvstore.RootsTable
	proofs kvstore.ProofsTable
}

// NewReadPath builds a ReadPath over the given tables.
func NewReadPath(roots kvstore.RootsTable, proofs kvstore.ProofsTable) *ReadPath {
	return &ReadPath{roots: roots, proofs: proofs}
}

// GetMerkleRoot returns the root row for whitelistName, in whatever status
// it currently holds. Callers treat non-COMPLETED as "not ready".
func (r *ReadPath) GetMerkleRoot(ctx context.Context, whitelistName string) (*kvstore.RootRecord, error) {
	return r.roots.GetItem(ctx, whitelistName)
}

// GetMerkleProof returns the proof row for (whitelistName, address), only
// once the tree is COMPLETED.
func (r *ReadPath) GetMerkleProof(ctx context.Context, whitelistName, address string) (*kvstore.ProofRecord, error) {
	if err := merkle.ValidateAddressSyntax(address); err != nil {
		return nil, apperrors.Validation(err, err.Error())
	}
	checksummed := merkle.ChecksumAddress(address)

	root, err := r.roots.GetItem(ctx, whitelistName)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindResourceNotFound {
			return nil, apperrors.Validation(err, "not found")
		}
		return nil, err
	}
	if root.Status != kvstore.StatusCompleted {
		return nil, apperrors.Validation(nil, "not ready")
	}

	return r.proofs.GetItem(ctx, whitelistName, checksummed)
}

// GetMerkleProofs returns every proof row for whitelistName, only once the
// tree is COMPLETED.
func (r *ReadPath) GetMerkleProofs(ctx context.Context, whitelistName string) ([]kvstore.ProofRecord, error) {
	root, err := r.roots.GetItem(ctx, whitelistName)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindResourceNotFound {
			return nil, apperrors.Validation(err, "not found")
		}
		return nil, err
	}
	if root.Status != kvstore.StatusCompleted {
		return nil, apperrors.Validation(nil, "not ready")
	}

	var all []kvstore.ProofRecord
	token := ""
	for {
		page, err := r.proofs.Query(ctx, whitelistName, token)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.Token == "" {
			return all, nil
		}
		token = page.Token
	}
}

// GetMerkleRoots pages through the roots table, pageSize in [1, 1000].
func (r *ReadPath) GetMerkleRoots(ctx context.Context, pageSize int, startingToken string) (RootsPage, error) {
	if pageSize < MinPageSize || pageSize > MaxPageSize {
		return RootsPage{}, apperrors.Validation(nil, "pageSize must be between 1 and 1000")
	}

	page, err := r.roots.Scan(ctx, pageSize, startingToken)
	if err != nil {
		return RootsPage{}, err
	}
	return RootsPage{Roots: page.Items, Token: page.Token}, nil
}

// GetMerkleTrees pages through the roots table, projecting only the
// whitelist name. This is the one read safe for anonymous callers.
func (r *ReadPath) GetMerkleTrees(ctx context.Context, pageSize int, startingToken string) (TreesPage, error) {
	if pageSize < MinPageSize || pageSize > MaxPageSize {
		return TreesPage{}, apperrors.Validation(nil, "pageSize must be between 1 and 1000")
	}

	page, err := r.roots.Scan(ctx, pageSize, startingToken)
	if err != nil {
		return TreesPage{}, err
	}

	trees := make([]TreeSummary, len(page.Items))
	for i, root := range page.Items {
		trees[i] = TreeSummary{WhitelistName: root.WhitelistName}
	}
	return TreesPage{Trees: trees, Token: page.Token}, nil
}
