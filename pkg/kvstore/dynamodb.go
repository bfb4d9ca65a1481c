package kvstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	apperrors "github.com/chainsafe/whitelist-merkle-service/pkg/app/errors"
	"github.com/chainsafe/whitelist-merkle-service/internal/metrics"
)

const (
	attrName      = "WhitelistName"
	attrRoot      = "MerkleRoot"
	attrStatus    = "WhitelistStatus"
	attrAddress   = "WhitelistAddress"
	attrAmountWei = "WhitelistAmountWei"
	attrProof     = "MerkleProof"
)

// DynamoDBClient is the subset of the AWS SDK v2 DynamoDB client the adapter
// needs, narrowed for testability.
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	BatchExecuteStatement(ctx context.Context, params *dynamodb.BatchExecuteStatementInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchExecuteStatementOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoRootsTable is the production RootsTable backed by DynamoDB.
type DynamoRootsTable struct {
	client DynamoDBClient
	table  string
}

// NewDynamoRootsTable builds a DynamoRootsTable over the named table.
func NewDynamoRootsTable(client DynamoDBClient, table string) *DynamoRootsTable {
	return &DynamoRootsTable{client: client, table: table}
}

func (t *DynamoRootsTable) GetItem(ctx context.Context, name string) (*RootRecord, error) {
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      strPtr(t.table),
		Key:            map[string]types.AttributeValue{attrName: strAttr(name)},
		ConsistentRead: boolPtr(true),
	})
	if err != nil {
		return nil, classifyDynamoError(err, "get root item")
	}
	if len(out.Item) == 0 {
		return nil, apperrors.ResourceNotFound(nil, "whitelist root not found")
	}
	return rootFromItem(out.Item)
}

func (t *DynamoRootsTable) InsertOnly(ctx context.Context, record RootRecord) error {
	cond := expression.AttributeNotExists(expression.Name(attrName))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return apperrors.InternalError(err, "failed to build insert-only condition")
	}

	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 strPtr(t.table),
		Item:                      rootToItem(record),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return classifyDynamoError(err, "insert root item")
	}
	return nil
}

func (t *DynamoRootsTable) ConditionalPut(ctx context.Context, record RootRecord, expectedRoot string, expectedStatuses ...WhitelistStatus) error {
	cond := expression.Name(attrRoot).Equal(expression.Value(expectedRoot))
	if len(expectedStatuses) > 0 {
		statusCond := expression.Name(attrStatus).Equal(expression.Value(string(expectedStatuses[0])))
		for _, s := range expectedStatuses[1:] {
			statusCond = statusCond.Or(expression.Name(attrStatus).Equal(expression.Value(string(s))))
		}
		cond = cond.And(statusCond)
	}

	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return apperrors.InternalError(err, "failed to build conditional-put expression")
	}

	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 strPtr(t.table),
		Item:                      rootToItem(record),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return classifyDynamoError(err, "conditional put root item")
	}
	return nil
}

func (t *DynamoRootsTable) DeleteItem(ctx context.Context, name string) error {
	_, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: strPtr(t.table),
		Key:       map[string]types.AttributeValue{attrName: strAttr(name)},
	})
	if err != nil {
		return classifyDynamoError(err, "delete root item")
	}
	return nil
}

func (t *DynamoRootsTable) Scan(ctx context.Context, pageSize int, startingToken string) (Page[RootRecord], error) {
	input := &dynamodb.ScanInput{
		TableName:      strPtr(t.table),
		Limit:          int32Ptr(int32(pageSize)),
		ConsistentRead: boolPtr(true),
	}
	if startingToken != "" {
		input.ExclusiveStartKey = map[string]types.AttributeValue{attrName: strAttr(startingToken)}
	}

	out, err := t.client.Scan(ctx, input)
	if err != nil {
		return Page[RootRecord]{}, classifyDynamoError(err, "scan roots table")
	}

	items := make([]RootRecord, 0, len(out.Items))
	for _, raw := range out.Items {
		rec, err := rootFromItem(raw)
		if err != nil {
			return Page[RootRecord]{}, err
		}
		items = append(items, *rec)
	}

	return Page[RootRecord]{Items: items, Token: lastEvaluatedName(out.LastEvaluatedKey)}, nil
}

// DynamoProofsTable is the production ProofsTable backed by DynamoDB.
type DynamoProofsTable struct {
	client DynamoDBClient
	table  string
}

// NewDynamoProofsTable builds a DynamoProofsTable over the named table.
func NewDynamoProofsTable(client DynamoDBClient, table string) *DynamoProofsTable {
	return &DynamoProofsTable{client: client, table: table}
}

func (t *DynamoProofsTable) GetItem(ctx context.Context, name, address string) (*ProofRecord, error) {
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: strPtr(t.table),
		Key: map[string]types.AttributeValue{
			attrName:    strAttr(name),
			attrAddress: strAttr(address),
		},
		ConsistentRead: boolPtr(true),
	})
	if err != nil {
		return nil, classifyDynamoError(err, "get proof item")
	}
	if len(out.Item) == 0 {
		return nil, apperrors.ResourceNotFound(nil, "whitelist proof not found")
	}
	return proofFromItem(out.Item)
}

func (t *DynamoProofsTable) Query(ctx context.Context, name string, startingToken string) (Page[ProofRecord], error) {
	keyCond := expression.Key(attrName).Equal(expression.Value(name))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return Page[ProofRecord]{}, apperrors.InternalError(err, "failed to build query expression")
	}

	input := &dynamodb.QueryInput{
		TableName:                 strPtr(t.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            boolPtr(true),
	}
	if startingToken != "" {
		input.ExclusiveStartKey = map[string]types.AttributeValue{
			attrName:    strAttr(name),
			attrAddress: strAttr(startingToken),
		}
	}

	out, err := t.client.Query(ctx, input)
	if err != nil {
		return Page[ProofRecord]{}, classifyDynamoError(err, "query proofs table")
	}

	items := make([]ProofRecord, 0, len(out.Items))
	for _, raw := range out.Items {
		rec, err := proofFromItem(raw)
		if err != nil {
			return Page[ProofRecord]{}, err
		}
		items = append(items, *rec)
	}

	token := ""
	if len(out.LastEvaluatedKey) > 0 {
		if av, ok := out.LastEvaluatedKey[attrAddress].(*types.AttributeValueMemberS); ok {
			token = av.Value
		}
	}

	return Page[ProofRecord]{Items: items, Token: token}, nil
}

// BatchInsert bulk-inserts records via PartiQL batch statements, in chunks
// of 25, retrying unprocessed statements with exponential backoff per spec
// §4.2. Exhausted retries surface ErrPartialBatch rather than succeeding
// silently.
func (t *DynamoProofsTable) BatchInsert(ctx context.Context, records []ProofRecord) error {
	for _, batch := range chunk(records, batchStatementChunkSize) {
		statements := make([]types.BatchStatementRequest, 0, len(batch))
		for _, rec := range batch {
			statements = append(statements, types.BatchStatementRequest{
				Statement: strPtr(fmt.Sprintf(
					"INSERT INTO \"%s\" VALUE {'%s': ?, '%s': ?, '%s': ?, '%s': ?}",
					t.table, attrName, attrAddress, attrAmountWei, attrProof,
				)),
				Parameters: []types.AttributeValue{
					strAttr(rec.WhitelistName),
					strAttr(rec.WhitelistAddress),
					strAttr(rec.WhitelistAmountWei),
					strAttr(rec.MerkleProof),
				},
			})
		}

		if err := t.executeStatementsWithRetry(ctx, statements); err != nil {
			return err
		}
	}
	return nil
}

func (t *DynamoProofsTable) executeStatementsWithRetry(ctx context.Context, statements []types.BatchStatementRequest) error {
	pending := statements
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			metrics.BatchWriteRetries.WithLabelValues(t.table, "insert").Inc()
			if err := sleepBackoff(ctx, attempt); err != nil {
				return err
			}
		}

		out, err := t.client.BatchExecuteStatement(ctx, &dynamodb.BatchExecuteStatementInput{
			Statements: pending,
		})
		if err != nil {
			return classifyDynamoError(err, "batch insert proof items")
		}

		var retry []types.BatchStatementRequest
		for i, resp := range out.Responses {
			if resp.Error != nil {
				retry = append(retry, pending[i])
			}
		}
		if len(retry) == 0 {
			return nil
		}
		pending = retry
	}

	metrics.BatchWritePartialFailures.WithLabelValues(t.table, "insert").Inc()
	return apperrors.Other(ErrPartialBatch, "batch insert exhausted retries with unprocessed items")
}

// BatchDelete bulk-deletes rows for name at addresses via BatchWriteItem, in
// chunks of 25, retrying unprocessed items with exponential backoff.
func (t *DynamoProofsTable) BatchDelete(ctx context.Context, name string, addresses []string) error {
	for _, batch := range chunk(addresses, batchWriteChunkSize) {
		writeReqs := make([]types.WriteRequest, 0, len(batch))
		for _, addr := range batch {
			writeReqs = append(writeReqs, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{
						attrName:    strAttr(name),
						attrAddress: strAttr(addr),
					},
				},
			})
		}

		if err := t.batchWriteWithRetry(ctx, writeReqs); err != nil {
			return err
		}
	}
	return nil
}

func (t *DynamoProofsTable) batchWriteWithRetry(ctx context.Context, requests []types.WriteRequest) error {
	pending := requests
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			metrics.BatchWriteRetries.WithLabelValues(t.table, "delete").Inc()
			if err := sleepBackoff(ctx, attempt); err != nil {
				return err
			}
		}

		out, err := t.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{t.table: pending},
		})
		if err != nil {
			return classifyDynamoError(err, "batch delete proof items")
		}

		unprocessed := out.UnprocessedItems[t.table]
		if len(unprocessed) == 0 {
			return nil
		}
		pending = unprocessed
	}

	metrics.BatchWritePartialFailures.WithLabelValues(t.table, "delete").Inc()
	return apperrors.Other(ErrPartialBatch, "batch delete exhausted retries with unprocessed items")
}

// TransactInsert bulk-inserts records via TransactWriteItems, in chunks of
// TransactChunkSize executed sequentially. Unlike BatchInsert, a chunk is
// all-or-nothing: a cancelled transaction surfaces as a single Conflict-kind
// error with nothing partially written, rather than a set of unprocessed
// items to retry.
func (t *DynamoProofsTable) TransactInsert(ctx context.Context, records []ProofRecord) error {
	for _, batch := range chunk(records, TransactChunkSize) {
		items := make([]types.TransactWriteItem, 0, len(batch))
		for _, rec := range batch {
			items = append(items, types.TransactWriteItem{
				Put: &types.Put{
					TableName: strPtr(t.table),
					Item:      proofToItem(rec),
				},
			})
		}

		if _, err := t.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		}); err != nil {
			return classifyDynamoError(err, "transact insert proof items")
		}
	}
	return nil
}

// TransactDelete bulk-deletes the rows for name at addresses via
// TransactWriteItems, in chunks of TransactChunkSize executed sequentially.
func (t *DynamoProofsTable) TransactDelete(ctx context.Context, name string, addresses []string) error {
	for _, batch := range chunk(addresses, TransactChunkSize) {
		items := make([]types.TransactWriteItem, 0, len(batch))
		for _, addr := range batch {
			items = append(items, types.TransactWriteItem{
				Delete: &types.Delete{
					TableName: strPtr(t.table),
					Key: map[string]types.AttributeValue{
						attrName:    strAttr(name),
						attrAddress: strAttr(addr),
					},
				},
			})
		}

		if _, err := t.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		}); err != nil {
			return classifyDynamoError(err, "transact delete proof items")
		}
	}
	return nil
}

// sleepBackoff sleeps 10ms * 2^attempt, per spec §4.2's unprocessed-items
// retry schedule.
func sleepBackoff(ctx context.Context, attempt int) error {
	delay := time.Duration(float64(10*time.Millisecond) * math.Pow(2, float64(attempt)))
	select {
	case <-ctx.Done():
		return apperrors.InternalError(ctx.Err(), "context cancelled during batch retry backoff")
	case <-time.After(delay):
		return nil
	}
}

func rootToItem(r RootRecord) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrName:   strAttr(r.WhitelistName),
		attrRoot:   strAttr(r.MerkleRoot),
		attrStatus: strAttr(string(r.Status)),
	}
}

func proofToItem(r ProofRecord) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrName:      strAttr(r.WhitelistName),
		attrAddress:   strAttr(r.WhitelistAddress),
		attrAmountWei: strAttr(r.WhitelistAmountWei),
		attrProof:     strAttr(r.MerkleProof),
	}
}

func rootFromItem(item map[string]types.AttributeValue) (*RootRecord, error) {
	name, err := stringAttr(item, attrName)
	if err != nil {
		return nil, err
	}
	root, err := stringAttr(item, attrRoot)
	if err != nil {
		return nil, err
	}
	status, err := stringAttr(item, attrStatus)
	if err != nil {
		return nil, err
	}
	return &RootRecord{WhitelistName: name, MerkleRoot: root, Status: WhitelistStatus(status)}, nil
}

func proofFromItem(item map[string]types.AttributeValue) (*ProofRecord, error) {
	name, err := stringAttr(item, attrName)
	if err != nil {
		return nil, err
	}
	address, err := stringAttr(item, attrAddress)
	if err != nil {
		return nil, err
	}
	amount, err := stringAttr(item, attrAmountWei)
	if err != nil {
		return nil, err
	}
	proof, _ := stringAttr(item, attrProof) // empty proof string is valid (single-leaf tree)
	return &ProofRecord{
		WhitelistName:      name,
		WhitelistAddress:   address,
		WhitelistAmountWei: amount,
		MerkleProof:        proof,
	}, nil
}

func stringAttr(item map[string]types.AttributeValue, key string) (string, error) {
	av, ok := item[key]
	if !ok {
		return "", apperrors.InternalError(nil, fmt.Sprintf("missing attribute %q in item", key))
	}
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return "", apperrors.InternalError(nil, fmt.Sprintf("attribute %q is not a string", key))
	}
	return s.Value, nil
}

func lastEvaluatedName(key map[string]types.AttributeValue) string {
	if len(key) == 0 {
		return ""
	}
	if av, ok := key[attrName].(*types.AttributeValueMemberS); ok {
		return av.Value
	}
	return ""
}

func strAttr(v string) *types.AttributeValueMemberS {
	return &types.AttributeValueMemberS{Value: v}
}

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }
func int32Ptr(v int32) *int32 { return &v }

// classifyDynamoError maps an AWS SDK v2 DynamoDB error into the spec §7
// taxonomy, driven by a small code table rather than a cascade of type
// assertions (spec §9).
func classifyDynamoError(err error, op string) error {
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return apperrors.ConditionalCheckFailed(err, op+": conditional check failed")
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ConditionalCheckFailedException":
			return apperrors.ConditionalCheckFailed(err, op+": conditional check failed")
		case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
			return apperrors.Throttled(err, op+": request throttled")
		case "TransactionConflictException", "TransactionCanceledException", "ReplicatedWriteConflictException":
			return apperrors.Conflict(err, op+": transaction conflict")
		case "ResourceNotFoundException":
			return apperrors.ResourceNotFound(err, op+": resource not found")
		case "AccessDeniedException", "UnrecognizedClientException":
			return apperrors.AccessDenied(err)
		case "InternalServerError", "ItemCollectionSizeLimitExceededException":
			return apperrors.InternalError(err, op+": "+apiErr.ErrorMessage())
		default:
			return apperrors.Other(err, op+": "+apiErr.ErrorMessage())
		}
	}

	return apperrors.Other(err, op+": unclassified KV store failure")
}
