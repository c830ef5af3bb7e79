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

// Package s3 implements the storage backend on top of an S3 compatible
// object store. Each backend item is one object, the backend key is the
// object key under an optional prefix.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"

	"github.com/gitscape/gitscape"
	"github.com/gitscape/gitscape/lib/backend"
	logutils "github.com/gitscape/gitscape/lib/utils/log"
)

// s3Client is the subset of the S3 API the backend uses. Keeping it
// narrow lets tests substitute a fake without running a real bucket.
type s3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config holds S3 backend settings.
type Config struct {
	// Bucket is the bucket holding all items.
	Bucket string
	// Prefix is an optional object key namespace, useful when the
	// bucket is shared with other data.
	Prefix string
	// Region is the AWS region, taken from the environment when empty.
	Region string
	// Endpoint points the client at an S3 compatible server instead of
	// AWS, e.g. a local MinIO. Implies path style addressing.
	Endpoint string
	// Clock is the clock used by the backend, a real clock when empty.
	Clock clockwork.Clock
}

// CheckAndSetDefaults validates the config and fills in defaults.
func (c *Config) CheckAndSetDefaults() error {
	if c.Bucket == "" {
		return trace.BadParameter("missing parameter Bucket")
	}
	if c.Prefix != "" && !strings.HasSuffix(c.Prefix, "/") {
		c.Prefix += "/"
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Backend implements backend.Backend over a bucket.
type Backend struct {
	Config

	client s3Client
	logger *slog.Logger
}

// New creates an S3 backend, resolving credentials from the usual AWS
// environment chain.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	b, err := NewWithClient(cfg, client)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	b.logger.InfoContext(ctx, "Initializing S3 backend", "bucket", cfg.Bucket, "prefix", cfg.Prefix)
	return b, nil
}

// NewWithClient creates an S3 backend around an existing client. Tests
// use it to inject a fake.
func NewWithClient(cfg Config, client s3Client) (*Backend, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	if client == nil {
		return nil, trace.BadParameter("missing parameter client")
	}
	return &Backend{
		Config: cfg,
		client: client,
		logger: logutils.NewPackageLogger(gitscape.ComponentKey, gitscape.Component(gitscape.ComponentBackend, "s3")),
	}, nil
}

// Get downloads the object for the key.
func (b *Backend) Get(ctx context.Context, key backend.Key) (*backend.Item, error) {
	if key == "" {
		return nil, trace.BadParameter("missing parameter key")
	}
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.Bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	if err != nil {
		return nil, trace.Wrap(convertError(err), "getting %v", key.String())
	}
	defer out.Body.Close()

	value, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, trace.Wrap(err, "reading %v", key.String())
	}
	return &backend.Item{Key: key, Value: value}, nil
}

// Put uploads the item, overwriting any previous object.
func (b *Backend) Put(ctx context.Context, item backend.Item) error {
	if item.Key == "" {
		return trace.BadParameter("missing parameter key")
	}
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.Bucket),
		Key:    aws.String(b.objectKey(item.Key)),
		Body:   bytes.NewReader(item.Value),
	})
	if err != nil {
		return trace.Wrap(convertError(err), "putting %v", item.Key.String())
	}
	return nil
}

// List pages through the bucket and returns the keys under the prefix.
// S3 already returns object keys in lexical order.
func (b *Backend) List(ctx context.Context, prefix backend.Key) ([]backend.Key, error) {
	keys := []backend.Key{}
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.Bucket),
		Prefix: aws.String(b.objectKey(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, trace.Wrap(convertError(err), "listing %v", prefix.String())
		}
		for _, object := range page.Contents {
			keys = append(keys, backend.Key(strings.TrimPrefix(aws.ToString(object.Key), b.Prefix)))
		}
	}
	return keys, nil
}

// Close is a no-op, the S3 client holds no long lived resources.
func (b *Backend) Close() error {
	return nil
}

// Clock returns the clock used by this backend.
func (b *Backend) Clock() clockwork.Clock {
	return b.Config.Clock
}

// objectKey maps a backend key to the object key inside the bucket. The
// prefix is joined verbatim so a trailing separator on the key survives,
// List depends on that.
func (b *Backend) objectKey(key backend.Key) string {
	return b.Prefix + key.String()
}

// convertError translates S3 API failures into trace errors, keeping the
// backend error contract: a missing object reads as trace.NotFound.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return trace.NotFound("%s", noSuchKey.ErrorMessage())
	}
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return trace.NotFound("%s", noSuchBucket.ErrorMessage())
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return trace.NotFound("%s", apiErr.ErrorMessage())
	}
	return trace.Wrap(err)
}
