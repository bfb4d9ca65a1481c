package whitelist

// TODO: remove the mock impl and use mockery to generate mock

import (
	"context"

	"github.com/chainsafe/whitelist-merkle-service/pkg/kvstore"
)

// fakeObjectStore is a hand-rolled in-memory Store fake.
type fakeObjectStore struct {
	GetFunc    func(ctx context.Context, bucket, key string) ([]byte, error)
	PutFunc    func(ctx context.Context, bucket, key string, body []byte, contentType string, allowOverwrite bool) error
	DeleteFunc func(ctx context.Context, bucket, key string) error
}

func (f *fakeObjectStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if f.GetFunc != nil {
		return f.GetFunc(ctx, bucket, key)
	}
	return nil, nil
}

func (f *fakeObjectStore) Put(ctx context.Context, bucket, key string, body []byte, contentType string, allowOverwrite bool) error {
	if f.PutFunc != nil {
		return f.PutFunc(ctx, bucket, key, body, contentType, allowOverwrite)
	}
	return nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, bucket, key string) error {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, bucket, key)
	}
	return nil
}

// fakeRootsTable is a hand-rolled in-memory RootsTable fake.
type fakeRootsTable struct {
	GetItemFunc        func(ctx context.Context, name string) (*kvstore.RootRecord, error)
	InsertOnlyFunc     func(ctx context.Context, record kvstore.RootRecord) error
	ConditionalPutFunc func(ctx context.Context, record kvstore.RootRecord, expectedRoot string, expectedStatuses ...kvstore.WhitelistStatus) error
	DeleteItemFunc     func(ctx context.Context, name string) error
	ScanFunc           func(ctx context.Context, pageSize int, startingToken string) (kvstore.Page[kvstore.RootRecord], error)
}

func (f *fakeRootsTable) GetItem(ctx context.Context, name string) (*kvstore.RootRecord, error) {
	if f.GetItemFunc != nil {
		return f.GetItemFunc(ctx, name)
	}
	return nil, nil
}

func (f *fakeRootsTable) InsertOnly(ctx context.Context, record kvstore.RootRecord) error {
	if f.InsertOnlyFunc != nil {
		return f.InsertOnlyFunc(ctx, record)
	}
	return nil
}

func (f *fakeRootsTable) ConditionalPut(ctx context.Context, record kvstore.RootRecord, expectedRoot string, expectedStatuses ...kvstore.WhitelistStatus) error {
	if f.ConditionalPutFunc != nil {
		return f.ConditionalPutFunc(ctx, record, expectedRoot, expectedStatuses...)
	}
	return nil
}

func (f *fakeRootsTable) DeleteItem(ctx context.Context, name string) error {
	if f.DeleteItemFunc != nil {
		return f.DeleteItemFunc(ctx, name)
	}
	return nil
}

func (f *fakeRootsTable) Scan(ctx context.Context, pageSize int, startingToken string) (kvstore.Page[kvstore.RootRecord], error) {
	if f.ScanFunc != nil {
		return f.ScanFunc(ctx, pageSize, startingToken)
	}
	return kvstore.Page[kvstore.RootRecord]{}, nil
}

// fakeProofsTable is a hand-rolled in-memory ProofsTable fake.
type fakeProofsTable struct {
	GetItemFunc        func(ctx context.Context, name, address string) (*kvstore.ProofRecord, error)
	QueryFunc          func(ctx context.Context, name, startingToken string) (kvstore.Page[kvstore.ProofRecord], error)
	BatchInsertFunc    func(ctx context.Context, records []kvstore.ProofRecord) error
	BatchDeleteFunc    func(ctx context.Context, name string, addresses []string) error
	TransactInsertFunc func(ctx context.Context, records []kvstore.ProofRecord) error
	TransactDeleteFunc func(ctx context.Context, name string, addresses []string) error
}

func (f *fakeProofsTable) GetItem(ctx context.Context, name, address string) (*kvstore.ProofRecord, error) {
	if f.GetItemFunc != nil {
		return f.GetItemFunc(ctx, name, address)
	}
	return nil, nil
}

func (f *fakeProofsTable) Query(ctx context.Context, name, startingToken string) (kvstore.Page[kvstore.ProofRecord], error) {
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, name, startingToken)
	}
	return kvstore.Page[kvstore.ProofRecord]{}, nil
}

func (f *fakeProofsTable) BatchInsert(ctx context.Context, records []kvstore.ProofRecord) error {
	if f.BatchInsertFunc != nil {
		return f.BatchInsertFunc(ctx, records)
	}
	return nil
}

func (f *fakeProofsTable) BatchDelete(ctx context.Context, name string, addresses []string) error {
	if f.BatchDeleteFunc != nil {
		return f.BatchDeleteFunc(ctx, name, addresses)
	}
	return nil
}

func (f *fakeProofsTable) TransactInsert(ctx context.Context, records []kvstore.ProofRecord) error {
	if f.TransactInsertFunc != nil {
		return f.TransactInsertFunc(ctx, records)
	}
	return nil
}

func (f *fakeProofsTable) TransactDelete(ctx context.Context, name string, addresses []string) error {
	if f.TransactDeleteFunc != nil {
		return f.TransactDeleteFunc(ctx, name, addresses)
	}
	return nil
}
