package whitelist

import (
	"context"
	"testing"

	apperrors "github.com/chainsafe/whitelist-merkle-service/pkg/app/errors"
	"github.com/chainsafe/whitelist-merkle-service/pkg/kvstore"
)

func TestReadPath_GetMerkleRoot_Passthrough(t *testing.T) {
	want := &kvstore.RootRecord{WhitelistName: testWhitelist, MerkleRoot: "0xroot", Status: kvstore.StatusCompleted}
	roots := &fakeRootsTable{
		GetItemFunc: func(ctx context.Context, name string) (*kvstore.RootRecord, error) {
			return want, nil
		},
	}
	r := NewReadPath(roots, &fakeProofsTable{})

	got, err := r.GetMerkleRoot(context.Background(), testWhitelist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("expected passthrough of the root record")
	}
}

func TestReadPath_GetMerkleProof_RejectsInvalidAddressSyntax(t *testing.T) {
	r := NewReadPath(&fakeRootsTable{}, &fakeProofsTable{})
	_, err := r.GetMerkleProof(context.Background(), testWhitelist, "not-an-address")
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Fatalf("expected Validation error, got %v", err)
	}
}

func TestReadPath_GetMerkleProof_NotFoundWhitelistIsValidationError(t *testing.T) {
	roots := &fakeRootsTable{
		GetItemFunc: func(ctx context.Context, name string) (*kvstore.RootRecord, error) {
			return nil, apperrors.ResourceNotFound(nil, "not found")
		},
	}
	r := NewReadPath(roots, &fakeProofsTable{})

	_, err := r.GetMerkleProof(context.Background(), testWhitelist, "0x0000000000000000000000000000000000000001")
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Fatalf("expected Validation error, got %v", err)
	}
}

func TestReadPath_GetMerkleProof_NotReadyWhenTreeNotCompleted(t *testing.T) {
	roots := &fakeRootsTable{
		GetItemFunc: func(ctx context.Context, name string) (*kvstore.RootRecord, error) {
			return &kvstore.RootRecord{WhitelistName: testWhitelist, MerkleRoot: "0xroot", Status: kvstore.StatusCreating}, nil
		},
	}
	r := NewReadPath(roots, &fakeProofsTable{})

	_, err := r.GetMerkleProof(context.Background(), testWhitelist, "0x0000000000000000000000000000000000000001")
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Fatalf("expected Validation error, got %v", err)
	}
}

func TestReadPath_GetMerkleProof_ChecksumNormalizesAddressBeforeLookup(t *testing.T) {
	var gotAddress string
	roots := &fakeRootsTable{
		GetItemFunc: func(ctx context.Context, name string) (*kvstore.RootRecord, error) {
			return &kvstore.RootRecord{WhitelistName: testWhitelist, MerkleRoot: "0xroot", Status: kvstore.StatusCompleted}, nil
		},
	}
	proofs := &fakeProofsTable{
		GetItemFunc: func(ctx context.Context, name, address string) (*kvstore.ProofRecord, error) {
			gotAddress = address
			return &kvstore.ProofRecord{WhitelistName: name, WhitelistAddress: address}, nil
		},
	}
	r := NewReadPath(roots, proofs)

	lower := "0x00000000000000000000000000000000000000ab"
	if _, err := r.GetMerkleProof(context.Background(), testWhitelist, lower); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	upper := "0x00000000000000000000000000000000000000AB"
	gotAddress = ""
	if _, err := r.GetMerkleProof(context.Background(), testWhitelist, upper); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	secondLookup := gotAddress

	gotAddress = ""
	if _, err := r.GetMerkleProof(context.Background(), testWhitelist, lower); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstLookup := gotAddress

	if firstLookup != secondLookup {
		t.Errorf("expected both casings to normalize to the same lookup key, got %q and %q", firstLookup, secondLookup)
	}
}

func TestReadPath_GetMerkleProofs_AccumulatesAllPages(t *testing.T) {
	roots := &fakeRootsTable{
		GetItemFunc: func(ctx context.Context, name string) (*kvstore.RootRecord, error) {
			return &kvstore.RootRecord{WhitelistName: testWhitelist, MerkleRoot: "0xroot", Status: kvstore.StatusCompleted}, nil
		},
	}
	proofs := &fakeProofsTable{
		QueryFunc: func(ctx context.Context, name, startingToken string) (kvstore.Page[kvstore.ProofRecord], error) {
			switch startingToken {
			case "":
				return kvstore.Page[kvstore.ProofRecord]{
					Items: []kvstore.ProofRecord{{WhitelistAddress: "0xaaa"}},
					Token: "0xaaa",
				}, nil
			case "0xaaa":
				return kvstore.Page[kvstore.ProofRecord]{
					Items: []kvstore.ProofRecord{{WhitelistAddress: "0xbbb"}},
					Token: "",
				}, nil
			default:
				t.Fatalf("unexpected starting token %q", startingToken)
				return kvstore.Page[kvstore.ProofRecord]{}, nil
			}
		},
	}
	r := NewReadPath(roots, proofs)

	all, err := r.GetMerkleProofs(context.Background(), testWhitelist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 accumulated proof records, got %d", len(all))
	}
}

func TestReadPath_GetMerkleRoots_RejectsOutOfBoundsPageSize(t *testing.T) {
	r := NewReadPath(&fakeRootsTable{}, &fakeProofsTable{})

	if _, err := r.GetMerkleRoots(context.Background(), 0, ""); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("expected Validation error for pageSize=0, got %v", err)
	}
	if _, err := r.GetMerkleRoots(context.Background(), MaxPageSize+1, ""); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("expected Validation error for pageSize=%d, got %v", MaxPageSize+1, err)
	}
}

func TestReadPath_GetMerkleRoots_ReturnsScanResults(t *testing.T) {
	roots := &fakeRootsTable{
		ScanFunc: func(ctx context.Context, pageSize int, startingToken string) (kvstore.Page[kvstore.RootRecord], error) {
			return kvstore.Page[kvstore.RootRecord]{
				Items: []kvstore.RootRecord{{WhitelistName: "w1"}, {WhitelistName: "w2"}},
				Token: "w2",
			}, nil
		},
	}
	r := NewReadPath(roots, &fakeProofsTable{})

	page, err := r.GetMerkleRoots(context.Background(), 10, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Roots) != 2 || page.Token != "w2" {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestReadPath_GetMerkleTrees_ProjectsToWhitelistNameOnly(t *testing.T) {
	roots := &fakeRootsTable{
		ScanFunc: func(ctx context.Context, pageSize int, startingToken string) (kvstore.Page[kvstore.RootRecord], error) {
			return kvstore.Page[kvstore.RootRecord]{
				Items: []kvstore.RootRecord{{WhitelistName: "w1", MerkleRoot: "0xroot", Status: kvstore.StatusCompleted}},
			}, nil
		},
	}
	r := NewReadPath(roots, &fakeProofsTable{})

	page, err := r.GetMerkleTrees(context.Background(), 10, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Trees) != 1 || page.Trees[0].WhitelistName != "w1" {
		t.Fatalf("unexpected trees: %+v", page.Trees)
	}
}

func TestReadPath_GetMerkleTrees_RejectsOutOfBoundsPageSize(t *testing.T) {
	r := NewReadPath(&fakeRootsTable{}, &fakeProofsTable{})

	if _, err := r.GetMerkleTrees(context.Background(), 0, ""); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("expected Validation error for pageSize=0, got %v", err)
	}
}
