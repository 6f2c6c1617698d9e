// Package blobstore is the object storage the converter reads axial volumes from
// and writes derived volumes to. Bucket implements it on gocloud.dev/blob, so any
// driver gocloud supports can be used; GCS is the default.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
	"gocloud.dev/gcp"

	"mrireorient/internal/models"
	"mrireorient/pkg/npy"
)

// ErrNotFound matches fetch errors for keys that do not exist
var ErrNotFound = errors.New("key not found")

// FetchError is returned when a source volume cannot be read or decoded
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) match missing keys
func (e *FetchError) Is(target error) bool {
	return target == ErrNotFound && gcerrors.Code(e.Err) == gcerrors.NotFound
}

// WriteError is returned when a derived volume cannot be stored
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Iterator yields keys lazily. Next returns io.EOF when the listing is exhausted.
type Iterator interface {
	Next(ctx context.Context) (string, error)
}

// Store is the key-addressed storage the batch driver depends on
type Store interface {
	// List returns the keys starting with prefix, in store-defined order
	List(ctx context.Context, prefix string) Iterator

	// Get reads and decodes the volume at key
	Get(ctx context.Context, key string) (*models.Volume, error)

	// Put encodes v and writes it to key, overwriting any existing object.
	// meta is stored alongside the object.
	Put(ctx context.Context, key string, v *models.Volume, meta map[string]string) error

	// PutBytes writes raw bytes to key
	PutBytes(ctx context.Context, key string, data []byte, contentType string) error

	Close() error
}

// Bucket is a Store backed by a gocloud blob bucket
type Bucket struct {
	ref    string
	bucket *blob.Bucket
}

// NewBucket wraps an already opened gocloud bucket
func NewBucket(ref string, b *blob.Bucket) *Bucket {
	return &Bucket{ref: ref, bucket: b}
}

// OpenBucket opens the bucket for the given reference.
// The reference should be of the form:
//
//	gs://<bucketname>
//	s3://<bucketname>?region=<region>
//	file:///<directory>
//	mem://
//
// A bare name is treated as a GCS bucket opened with application default credentials.
func OpenBucket(ctx context.Context, ref string) (*Bucket, error) {
	if strings.Contains(ref, "://") {
		b, err := blob.OpenBucket(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("can't open bucket reference @ %q: %w", ref, err)
		}
		return NewBucket(ref, b), nil
	}

	// See https://cloud.google.com/docs/authentication/production
	// for more info on alternatives.
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't get default GCP credentials: %w", err)
	}
	client, err := gcp.NewHTTPClient(
		gcp.DefaultTransport(),
		gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	b, err := gcsblob.OpenBucket(ctx, client, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("can't open GCS bucket %q: %w", ref, err)
	}
	return NewBucket("gs://"+ref, b), nil
}

// Ref returns the reference the bucket was opened with
func (b *Bucket) Ref() string {
	return b.ref
}

type listIterator struct {
	it *blob.ListIterator
}

func (l *listIterator) Next(ctx context.Context) (string, error) {
	for {
		obj, err := l.it.Next(ctx)
		if err != nil {
			return "", err
		}
		// Folder placeholders ("numpy/axial/") hold no volume.
		if obj.IsDir || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		return obj.Key, nil
	}
}

// List implements Store
func (b *Bucket) List(ctx context.Context, prefix string) Iterator {
	return &listIterator{it: b.bucket.List(&blob.ListOptions{Prefix: prefix})}
}

// Get implements Store
func (b *Bucket) Get(ctx context.Context, key string) (*models.Volume, error) {
	r, err := b.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, &FetchError{Key: key, Err: err}
	}
	defer r.Close()

	v, err := npy.Decode(r)
	if err != nil {
		return nil, &FetchError{Key: key, Err: err}
	}
	return v, nil
}

// Put implements Store
func (b *Bucket) Put(ctx context.Context, key string, v *models.Volume, meta map[string]string) error {
	data, err := npy.Encode(v)
	if err != nil {
		return &WriteError{Key: key, Err: err}
	}
	opts := &blob.WriterOptions{
		ContentType: "application/octet-stream",
		Metadata:    meta,
	}
	if err := b.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return &WriteError{Key: key, Err: err}
	}
	return nil
}

// PutBytes implements Store
func (b *Bucket) PutBytes(ctx context.Context, key string, data []byte, contentType string) error {
	if err := b.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType}); err != nil {
		return &WriteError{Key: key, Err: err}
	}
	return nil
}

// Attributes returns the metadata stored with key
func (b *Bucket) Attributes(ctx context.Context, key string) (map[string]string, error) {
	attrs, err := b.bucket.Attributes(ctx, key)
	if err != nil {
		return nil, err
	}
	return attrs.Metadata, nil
}

// Close implements Store
func (b *Bucket) Close() error {
	return b.bucket.Close()
}

// Drain reads every remaining key from it
func Drain(ctx context.Context, it Iterator) ([]string, error) {
	var keys []string
	for {
		k, err := it.Next(ctx)
		if err == io.EOF {
			return keys, nil
		}
		if err != nil {
			return keys, err
		}
		keys = append(keys, k)
	}
}
