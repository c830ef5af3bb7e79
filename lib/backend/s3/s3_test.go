/*
 * Gitscape
 * Copyright (C) 2025  Gitscape, Inc.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package s3

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/gitscape/gitscape/lib/backend"
	"github.com/gitscape/gitscape/lib/backend/test"
)

// fakeS3 keeps objects in a map and honors pagination, enough client
// surface for the backend under test.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	pageSize int
}

func newFakeS3(pageSize int) *fakeS3 {
	return &fakeS3{
		objects:  make(map[string][]byte),
		pageSize: pageSize,
	}
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	value, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(append([]byte{}, value...))),
	}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	value, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(params.Key)] = value
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []string
	for key := range f.objects {
		if strings.HasPrefix(key, aws.ToString(params.Prefix)) {
			matched = append(matched, key)
		}
	}
	sort.Strings(matched)

	start := 0
	if params.ContinuationToken != nil {
		token := aws.ToString(params.ContinuationToken)
		for i, key := range matched {
			if key > token {
				start = i
				break
			}
		}
	}

	end := start + f.pageSize
	if end > len(matched) {
		end = len(matched)
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(matched))}
	for _, key := range matched[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	if end < len(matched) {
		out.NextContinuationToken = aws.String(matched[end-1])
	}
	return out, nil
}

func newTestBackend(t *testing.T, pageSize int) *Backend {
	bk, err := NewWithClient(Config{
		Bucket: "gitscape-test",
		Prefix: "identity",
		Clock:  clockwork.NewFakeClock(),
	}, newFakeS3(pageSize))
	require.NoError(t, err)
	return bk
}

func TestS3Compliance(t *testing.T) {
	test.RunBackendComplianceSuite(t, func(t *testing.T) backend.Backend {
		return newTestBackend(t, 1000)
	})
}

func TestS3ListPagination(t *testing.T) {
	t.Parallel()

	// A page size of 2 forces the paginator through several round trips.
	bk := newTestBackend(t, 2)
	ctx := context.Background()

	names := []string{"alice", "bob", "carol", "dave", "erin"}
	for _, name := range names {
		err := bk.Put(ctx, backend.Item{Key: backend.NewKey("users", name), Value: []byte(name)})
		require.NoError(t, err)
	}

	keys, err := bk.List(ctx, backend.ExactKey("users"))
	require.NoError(t, err)
	require.Len(t, keys, len(names))
	for i, name := range names {
		require.Equal(t, backend.NewKey("users", name), keys[i])
	}
}

func TestS3ConfigValidation(t *testing.T) {
	t.Parallel()

	_, err := NewWithClient(Config{}, newFakeS3(10))
	require.True(t, trace.IsBadParameter(err))

	_, err = NewWithClient(Config{Bucket: "b"}, nil)
	require.True(t, trace.IsBadParameter(err))
}

func TestS3NotFoundContract(t *testing.T) {
	t.Parallel()

	bk := newTestBackend(t, 10)

	_, err := bk.Get(context.Background(), backend.NewKey("users", "ghost"))
	require.True(t, trace.IsNotFound(err), "expected not found, got %v", err)
}
