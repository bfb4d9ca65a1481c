// Package whitelist implements the tree-lifecycle orchestrator (component D)
// and read path (component E) of spec §4.4/§4.5: the centerpiece
// cross-store consistency protocol coordinating the object store and the
// two KV tables through a status-guarded state machine.
package whitelist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/whitelist-merkle-service/pkg/app/errors"
	"github.com/chainsafe/whitelist-merkle-service/pkg/kvstore"
	"github.com/chainsafe/whitelist-merkle-service/pkg/merkle"
	"github.com/chainsafe/whitelist-merkle-service/pkg/objectstore"

	"github.com/chainsafe/whitelist-merkle-service/internal/metrics"
)

// Orchestrator is the sole writer of the roots table's status column. It
// coordinates the object store (A), the Merkle builder (C), and the KV
// adapter (B) through the CreateTree/DeleteTree/DeleteWhitelist/Upload
// protocols of spec §4.4.
type Orchestrator struct {
	objects objectstore.Store
	roots   kvstore.RootsTable
	proofs  kvstore.ProofsTable
	bucket  string
	log     *zap.Logger
}

// NewOrchestrator builds an Orchestrator over the given stores and bucket.
func NewOrchestrator(objects objectstore.Store, roots kvstore.RootsTable, proofs kvstore.ProofsTable, bucket string, log *zap.Logger) *Orchestrator {
	return &Orchestrator{objects: objects, roots: roots, proofs: proofs, bucket: bucket, log: log}
}

// Upload stores a whitelist CSV blob, per spec §4.1/§4.3's input gate: the
// content is parsed and validated before it is ever written, so a malformed
// CSV never reaches the object store.
func (o *Orchestrator) Upload(ctx context.Context, whitelistName string, csvContent []byte, allowOverwrite bool) error {
	if _, err := merkle.ParseAndValidateCSV(csvContent); err != nil {
		return apperrors.Validation(err, err.Error())
	}

	key := objectstore.WhitelistKey(whitelistName)
	return o.objects.Put(ctx, o.bucket, key, csvContent, "text/csv", allowOverwrite)
}

// CreateTree implements spec §4.4's CreateTree protocol: read the CSV,
// build the tree, insert a CREATING root row, bulk-insert proofs, and
// promote to COMPLETED — or compensate to FAILED on any proof-insert
// failure.
func (o *Orchestrator) CreateTree(ctx context.Context, whitelistName string) (string, error) {
	opID := uuid.NewString()
	start := time.Now()
	o.log.Info("createTree started", zap.String("operationId", opID), zap.String("whitelistName", whitelistName))
	defer func() {
		metrics.TreeLifecycleDuration.WithLabelValues("createTree").Observe(time.Since(start).Seconds())
	}()

	key := objectstore.WhitelistKey(whitelistName)
	csvContent, err := o.objects.Get(ctx, o.bucket, key)
	if err != nil {
		metrics.TreeLifecycleTotal.WithLabelValues("createTree", apperrors.KindOf(err).String()).Inc()
		return "", err
	}

	entries, err := merkle.ParseAndValidateCSV(csvContent)
	if err != nil {
		metrics.TreeLifecycleTotal.WithLabelValues("createTree", apperrors.KindValidation.String()).Inc()
		return "", apperrors.Validation(err, err.Error())
	}

	result := merkle.Build(entries)
	metrics.WhitelistEntryCount.WithLabelValues("createTree").Observe(float64(len(entries)))

	if err := o.roots.InsertOnly(ctx, kvstore.RootRecord{
		WhitelistName: whitelistName,
		MerkleRoot:    result.RootHex,
		Status:        kvstore.StatusCreating,
	}); err != nil {
		metrics.TreeLifecycleTotal.WithLabelValues("createTree", apperrors.KindOf(err).String()).Inc()
		return "", err
	}

	records := make([]kvstore.ProofRecord, len(result.Proofs))
	for i, p := range result.Proofs {
		records[i] = kvstore.ProofRecord{
			WhitelistName:      whitelistName,
			WhitelistAddress:   p.Address,
			WhitelistAmountWei: p.AmountWei,
			MerkleProof:        p.ProofString,
		}
	}

	if err := o.insertProofs(ctx, records); err != nil {
		o.compensate(ctx, whitelistName, result.RootHex, kvstore.StatusCreating, kvstore.StatusFailed)
		metrics.TreeLifecycleTotal.WithLabelValues("createTree", apperrors.KindOf(err).String()).Inc()
		return "", err
	}

	if err := o.roots.ConditionalPut(ctx, kvstore.RootRecord{
		WhitelistName: whitelistName,
		MerkleRoot:    result.RootHex,
		Status:        kvstore.StatusCompleted,
	}, result.RootHex, kvstore.StatusCreating); err != nil {
		metrics.TreeLifecycleTotal.WithLabelValues("createTree", apperrors.KindOf(err).String()).Inc()
		return "", err
	}

	metrics.TreeLifecycleTotal.WithLabelValues("createTree", "completed").Inc()
	o.log.Info("createTree completed", zap.String("operationId", opID), zap.String("whitelistName", whitelistName), zap.String("merkleRoot", result.RootHex))
	return result.RootHex, nil
}

// DeleteTree implements spec §4.4's DeleteTree protocol: refuse with a
// Validation error when the root row is absent, CREATING or DELETING; flip
// COMPLETED/FAILED to DELETING, enumerate and bulk-delete every proof row,
// then delete the root row — or compensate back to FAILED on any
// proof-delete failure.
func (o *Orchestrator) DeleteTree(ctx context.Context, whitelistName string) error {
	opID := uuid.NewString()
	o.log.Info("deleteTree started", zap.String("operationId", opID), zap.String("whitelistName", whitelistName))

	root, err := o.roots.GetItem(ctx, whitelistName)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindResourceNotFound {
			return apperrors.Validation(err, "merkle tree not found")
		}
		return err
	}
	if root.Status == kvstore.StatusCreating || root.Status == kvstore.StatusDeleting {
		return apperrors.Validation(nil, "tree is not in a deletable state")
	}

	if err := o.roots.ConditionalPut(ctx, kvstore.RootRecord{
		WhitelistName: whitelistName,
		MerkleRoot:    root.MerkleRoot,
		Status:        kvstore.StatusDeleting,
	}, root.MerkleRoot, kvstore.StatusCompleted, kvstore.StatusFailed); err != nil {
		return err
	}

	if err := o.deleteAllProofs(ctx, whitelistName); err != nil {
		o.compensate(ctx, whitelistName, root.MerkleRoot, kvstore.StatusDeleting, kvstore.StatusFailed)
		return err
	}

	if err := o.roots.DeleteItem(ctx, whitelistName); err != nil {
		return err
	}
	o.log.Info("deleteTree completed", zap.String("operationId", opID), zap.String("whitelistName", whitelistName))
	return nil
}

// DeleteWhitelist implements spec §4.4: refuses when a root row exists in
// any status, otherwise deletes the CSV blob.
func (o *Orchestrator) DeleteWhitelist(ctx context.Context, whitelistName string) error {
	if _, err := o.roots.GetItem(ctx, whitelistName); err == nil {
		return apperrors.Validation(nil, "merkle tree exists for this whitelist")
	} else if apperrors.KindOf(err) != apperrors.KindResourceNotFound {
		return err
	}

	key := objectstore.WhitelistKey(whitelistName)
	return o.objects.Delete(ctx, o.bucket, key)
}

// ForceFailed is the operator repair tool named in spec §9: it forces a
// root row stuck in CREATING or DELETING back to FAILED, unblocking a
// subsequent DeleteTree. Not reachable from the HTTP surface.
func (o *Orchestrator) ForceFailed(ctx context.Context, whitelistName string) error {
	root, err := o.roots.GetItem(ctx, whitelistName)
	if err != nil {
		return err
	}
	if root.Status != kvstore.StatusCreating && root.Status != kvstore.StatusDeleting {
		return apperrors.Validation(nil, "root is not stuck in a transitional state")
	}
	return o.roots.ConditionalPut(ctx, kvstore.RootRecord{
		WhitelistName: whitelistName,
		MerkleRoot:    root.MerkleRoot,
		Status:        kvstore.StatusFailed,
	}, root.MerkleRoot, root.Status)
}

// insertProofs bulk-inserts records, preferring the atomic transactional
// write when the whole set fits in a single TransactChunkSize chunk (spec
// §4.2's 100-item transaction cap), and falling back to the
// unprocessed-items retry path otherwise, since a whitelist can carry up to
// 100,000 entries (spec §3) and not all of them fit in one KV transaction
// (spec §9's cross-store atomicity note).
func (o *Orchestrator) insertProofs(ctx context.Context, records []kvstore.ProofRecord) error {
	if len(records) <= kvstore.TransactChunkSize {
		return o.proofs.TransactInsert(ctx, records)
	}
	return o.proofs.BatchInsert(ctx, records)
}

// deleteProofs mirrors insertProofs: a page of proof rows that fits in one
// transaction chunk is deleted atomically, otherwise it falls back to the
// unprocessed-items retry path.
func (o *Orchestrator) deleteProofs(ctx context.Context, whitelistName string, addresses []string) error {
	if len(addresses) <= kvstore.TransactChunkSize {
		return o.proofs.TransactDelete(ctx, whitelistName, addresses)
	}
	return o.proofs.BatchDelete(ctx, whitelistName, addresses)
}

// deleteAllProofs pages through every proof row for whitelistName and
// bulk-deletes them in chunks, per spec §4.4 step 3.
func (o *Orchestrator) deleteAllProofs(ctx context.Context, whitelistName string) error {
	token := ""
	for {
		page, err := o.proofs.Query(ctx, whitelistName, token)
		if err != nil {
			return err
		}

		addresses := make([]string, len(page.Items))
		for i, rec := range page.Items {
			addresses[i] = rec.WhitelistAddress
		}
		if len(addresses) > 0 {
			if err := o.deleteProofs(ctx, whitelistName, addresses); err != nil {
				return err
			}
		}

		if page.Token == "" {
			return nil
		}
		token = page.Token
	}
}

// compensate runs a best-effort conditional transition back to a failure
// status. Per spec §4.4/§7, a compensating-write failure is logged but
// never masks the original error being returned by the caller.
func (o *Orchestrator) compensate(ctx context.Context, whitelistName, root string, fromStatus, toStatus kvstore.WhitelistStatus) {
	err := o.roots.ConditionalPut(ctx, kvstore.RootRecord{
		WhitelistName: whitelistName,
		MerkleRoot:    root,
		Status:        toStatus,
	}, root, fromStatus)

	outcome := "succeeded"
	if err != nil {
		outcome = "failed"
		o.log.Error("compensating transition failed; root row left in transitional state",
			zap.String("whitelistName", whitelistName),
			zap.String("fromStatus", string(fromStatus)),
			zap.String("toStatus", string(toStatus)),
			zap.Error(err),
		)
	}
	metrics.CompensatingTransitions.WithLabelValues(string(fromStatus), string(toStatus), outcome).Inc()
}
