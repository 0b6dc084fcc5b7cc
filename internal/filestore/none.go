package filestore

import (
	"context"
	"io"
)

type noneStore struct{}

func init() {
	Register("none", func(args interface{}) (Store, error) {
		return noneStore{}, nil
	})
}

func (noneStore) Type() string {
	return "none"
}

func (noneStore) Save(ctx context.Context, key string, r io.ReadSeeker, size int64) error {
	return nil
}
