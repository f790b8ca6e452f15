package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/car-listing-crawler/internal/storage"
)

func TestMultiReturnsPrimaryURI(t *testing.T) {
	t.Parallel()

	data := []byte("-- car_data: no rows\n")
	primary := new(storage.MockArchive)
	primary.On("Put", mock.Anything, "dump.sql", data).Return("file:///data/dump.sql", nil)
	secondary := new(storage.MockArchive)
	secondary.On("Put", mock.Anything, "dump.sql", data).Return("gs://bucket/dump.sql", nil)

	multi, err := storage.NewMulti(primary, nil, secondary)
	require.NoError(t, err)
	require.Len(t, multi, 2)

	uri, err := multi.Put(context.Background(), "dump.sql", data)
	require.NoError(t, err)
	assert.Equal(t, "file:///data/dump.sql", uri)
	primary.AssertExpectations(t)
	secondary.AssertExpectations(t)
}

func TestMultiStopsOnFailure(t *testing.T) {
	t.Parallel()

	primary := new(storage.MockArchive)
	primary.On("Put", mock.Anything, "dump.sql", mock.Anything).Return("", errors.New("disk full"))
	secondary := new(storage.MockArchive)

	multi, err := storage.NewMulti(primary, secondary)
	require.NoError(t, err)

	_, err = multi.Put(context.Background(), "dump.sql", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive 0: disk full")
	secondary.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

func TestNewMultiRequiresArchive(t *testing.T) {
	t.Parallel()

	_, err := storage.NewMulti(nil, nil)
	require.Error(t, err)

	_, err = storage.Multi(nil).Put(context.Background(), "dump.sql", nil)
	require.Error(t, err)
}
